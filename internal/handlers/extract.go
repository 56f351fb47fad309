package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/studytask/taskparse/internal/extraction"
	"github.com/studytask/taskparse/internal/validation"
)

const (
	// MaxTextLength is the maximum byte length for input text
	MaxTextLength = 10000
)

// ExtractionPipeline is the part of the extraction package the handlers
// need
type ExtractionPipeline interface {
	Extract(ctx context.Context, text string) extraction.Result
}

// ExtractHandler handles synchronous extraction requests
type ExtractHandler struct {
	pipeline ExtractionPipeline
}

// NewExtractHandler creates a new extraction handler
func NewExtractHandler(pipeline ExtractionPipeline) *ExtractHandler {
	return &ExtractHandler{pipeline: pipeline}
}

// ExtractRequest represents an extraction request
type ExtractRequest struct {
	Text string `json:"text" validate:"required,min=1,max=10000"`
}

// Extract handles POST /extract: it runs the pipeline on the input text
// and returns the extracted record with its warnings, without persisting
func (h *ExtractHandler) Extract(w http.ResponseWriter, r *http.Request) {
	text, ok := decodeTextRequest(w, r)
	if !ok {
		return
	}

	result := h.pipeline.Extract(r.Context(), text)
	respondJSON(w, http.StatusOK, result)
}

// decodeTextRequest decodes, validates, and sanitizes a text-bearing
// request body. On failure it writes the error response and returns false.
func decodeTextRequest(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req ExtractRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&req); err != nil {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return "", false
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return "", false
	}

	if err := validation.Validate.Struct(req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok && len(validationErrors) > 0 {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %s", validationErrors[0].Error()))
			return "", false
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return "", false
	}

	text := validation.SanitizeText(req.Text)
	if text == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Text is required and cannot be empty after sanitization")
		return "", false
	}
	if len(text) > MaxTextLength {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Text exceeds maximum length of %d characters", MaxTextLength))
		return "", false
	}

	return text, true
}
