package validation

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/studytask/taskparse/internal/models"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	// These should never fail in normal operation, but log if they do
	if err := Validate.RegisterValidation("priority", validatePriority); err != nil {
		panic(fmt.Sprintf("failed to register priority validator: %v", err))
	}
	if err := Validate.RegisterValidation("task_status", validateTaskStatus); err != nil {
		panic(fmt.Sprintf("failed to register task_status validator: %v", err))
	}
	if err := Validate.RegisterValidation("category", validateCategory); err != nil {
		panic(fmt.Sprintf("failed to register category validator: %v", err))
	}
	if err := Validate.RegisterValidation("iso_date", validateISODate); err != nil {
		panic(fmt.Sprintf("failed to register iso_date validator: %v", err))
	}
}

// validatePriority validates that a string is a valid Priority enum value
// or its Japanese label
func validatePriority(fl validator.FieldLevel) bool {
	_, ok := models.ParsePriority(fl.Field().String())
	return ok
}

// validateTaskStatus validates that a string is a valid TaskStatus enum value
// or its Japanese label
func validateTaskStatus(fl validator.FieldLevel) bool {
	_, ok := models.ParseTaskStatus(fl.Field().String())
	return ok
}

// validateCategory validates that a string belongs to the category vocabulary
func validateCategory(fl validator.FieldLevel) bool {
	return models.ValidCategory(fl.Field().String())
}

// validateISODate validates a strict YYYY-MM-DD calendar date
func validateISODate(fl validator.FieldLevel) bool {
	return ValidateISODate(fl.Field().String()) == nil
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	// Trim whitespace
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidatePriority validates a Priority string value
func ValidatePriority(value string) error {
	if _, ok := models.ParsePriority(value); !ok {
		return fmt.Errorf("invalid priority: %s (must be 'high', 'medium', or 'low')", value)
	}
	return nil
}

// ValidateTaskStatus validates a TaskStatus string value
func ValidateTaskStatus(value string) error {
	if _, ok := models.ParseTaskStatus(value); !ok {
		return fmt.Errorf("invalid status: %s (must be 'not_started', 'in_progress', or 'completed')", value)
	}
	return nil
}

// ValidateCategories validates a category label set against the vocabulary
func ValidateCategories(labels []string) error {
	for _, label := range labels {
		if !models.ValidCategory(label) {
			return fmt.Errorf("invalid category: %s", label)
		}
	}
	return nil
}

// ValidateISODate validates a strict YYYY-MM-DD calendar date string
func ValidateISODate(value string) error {
	parsed, err := time.Parse(models.DateFormat, value)
	if err != nil || parsed.Format(models.DateFormat) != value {
		return fmt.Errorf("invalid date: %s (must be YYYY-MM-DD)", value)
	}
	return nil
}
