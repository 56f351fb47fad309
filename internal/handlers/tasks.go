package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/studytask/taskparse/internal/database"
	"github.com/studytask/taskparse/internal/models"
	"github.com/studytask/taskparse/internal/queue"
	"github.com/studytask/taskparse/internal/reconcile"
	"github.com/studytask/taskparse/internal/validation"
)

const (
	// DefaultPageSize is the default page size for pagination
	DefaultPageSize = 20
	// MaxPageSize is the maximum page size for pagination
	MaxPageSize = 100
)

// TaskHandler handles task-related requests
type TaskHandler struct {
	taskRepo database.TaskRepositoryInterface
	pipeline ExtractionPipeline
	jobQueue queue.JobQueue // Optional: enables async extraction
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskRepo database.TaskRepositoryInterface, pipeline ExtractionPipeline, jobQueue queue.JobQueue) *TaskHandler {
	return &TaskHandler{
		taskRepo: taskRepo,
		pipeline: pipeline,
		jobQueue: jobQueue,
	}
}

// RegisterRoutes registers task routes on the given router.
// The router should already have the /tasks prefix.
func (h *TaskHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTasks).Methods("GET")
	r.HandleFunc("", h.CreateTask).Methods("POST")
	r.HandleFunc("/{id}", h.GetTask).Methods("GET")
	r.HandleFunc("/{id}", h.DeleteTask).Methods("DELETE")
	r.HandleFunc("/{id}/status", h.UpdateTaskStatus).Methods("PATCH")
	r.HandleFunc("/{id}/reextract", h.ReextractTask).Methods("POST")
}

// CreateTaskRequest represents a create task request. When Async is set
// and a queue is configured, extraction runs in the worker instead.
type CreateTaskRequest struct {
	Text  string `json:"text" validate:"required,min=1,max=10000"`
	Async bool   `json:"async,omitempty"`
}

// CreateTaskResponse carries the stored task together with the
// extraction warnings for the caller to display
type CreateTaskResponse struct {
	Task       *models.Task `json:"task"`
	Confidence float64      `json:"confidence"`
	Warnings   []string     `json:"warnings,omitempty"`
}

// EnqueuedResponse is returned for async extraction requests
type EnqueuedResponse struct {
	JobID string `json:"job_id"`
}

// ListTasksResponse represents the paginated response for listing tasks
type ListTasksResponse struct {
	Tasks      []*models.Task `json:"tasks"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	Total      int            `json:"total"`
	TotalPages int            `json:"total_pages"`
}

// UpdateStatusRequest represents a status transition request
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,task_status"`
}

// ListTasks lists tasks with filtering and pagination
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}

	pageSize := DefaultPageSize
	if ps := r.URL.Query().Get("page_size"); ps != "" {
		if parsed, err := strconv.Atoi(ps); err == nil && parsed > 0 {
			pageSize = parsed
			if pageSize > MaxPageSize {
				pageSize = MaxPageSize
			}
		}
	}

	var filter database.TaskFilter
	if s := r.URL.Query().Get("status"); s != "" {
		status, ok := models.ParseTaskStatus(s)
		if !ok {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "invalid status: "+s)
			return
		}
		filter.Status = &status
	}
	if p := r.URL.Query().Get("priority"); p != "" {
		priority, ok := models.ParsePriority(p)
		if !ok {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "invalid priority: "+p)
			return
		}
		filter.Priority = &priority
	}
	if c := r.URL.Query().Get("category"); c != "" {
		if !models.ValidCategory(c) {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "invalid category: "+c)
			return
		}
		filter.Category = &c
	}

	tasks, total, err := h.taskRepo.List(ctx, filter, page, pageSize)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve tasks")
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}

	totalPages := (total + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}

	respondJSON(w, http.StatusOK, ListTasksResponse{
		Tasks:      tasks,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
	})
}

// CreateTask extracts task attributes from the posted text and persists
// the resulting task. With async=true the extraction is queued instead.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&req); err != nil {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large",
				"Request body exceeds maximum size of "+strconv.FormatInt(maxBytesErr.Limit, 10)+" bytes")
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if err := validation.Validate.Struct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed: text is required (1-10000 characters)")
		return
	}

	text := validation.SanitizeText(req.Text)
	if text == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Text is required and cannot be empty after sanitization")
		return
	}

	ctx := r.Context()

	if req.Async && h.jobQueue != nil {
		job := queue.NewJob(queue.JobTypeTextExtraction, text, nil)
		if err := h.jobQueue.Enqueue(ctx, job); err != nil {
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to enqueue extraction job")
			return
		}
		respondJSON(w, http.StatusAccepted, EnqueuedResponse{JobID: job.ID.String()})
		return
	}

	result := h.pipeline.Extract(ctx, text)
	task, err := result.Task()
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to build task from extraction")
		return
	}
	task.Description = text

	if err := h.taskRepo.Create(ctx, task); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create task")
		return
	}

	respondJSON(w, http.StatusCreated, CreateTaskResponse{
		Task:       task,
		Confidence: result.Confidence,
		Warnings:   reconcile.Messages(result.Warnings),
	})
}

// GetTask retrieves a task by ID
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	task, err := h.taskRepo.GetByID(r.Context(), id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// UpdateTaskStatus transitions a task's lifecycle state. Accepts the
// enum value or its Japanese label.
func (h *TaskHandler) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	status, statusOK := models.ParseTaskStatus(req.Status)
	if !statusOK {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "invalid status: "+req.Status)
		return
	}

	ctx := r.Context()
	if err := h.taskRepo.UpdateStatus(ctx, id, status); err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
		return
	}

	task, err := h.taskRepo.GetByID(ctx, id)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve updated task")
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// DeleteTask deletes a task
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	if err := h.taskRepo.Delete(r.Context(), id); err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ReextractTask enqueues a re-extraction job for a stored task
func (h *TaskHandler) ReextractTask(w http.ResponseWriter, r *http.Request) {
	if h.jobQueue == nil {
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Job queue is not configured")
		return
	}

	id, ok := taskID(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	task, err := h.taskRepo.GetByID(ctx, id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
		return
	}

	text := task.Description
	if text == "" {
		text = task.Title
	}

	job := queue.NewJob(queue.JobTypeReextract, text, &task.ID)
	if err := h.jobQueue.Enqueue(ctx, job); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to enqueue re-extraction job")
		return
	}

	respondJSON(w, http.StatusAccepted, EnqueuedResponse{JobID: job.ID.String()})
}

// taskID extracts and parses the {id} path variable. On failure it
// writes the error response and returns false.
func taskID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid task ID")
		return uuid.Nil, false
	}
	return id, true
}
