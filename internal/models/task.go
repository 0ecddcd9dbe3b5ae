package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTaskNotFound is returned when no task in the collection has the requested id.
var ErrTaskNotFound = errors.New("task not found")

// ErrIDsExhausted is returned when the highest id in use is already math.MaxInt64.
var ErrIDsExhausted = errors.New("no task ids left")

// Task represents a single task record.
type Task struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// TaskInput holds the client-supplied fields of a task, as sent to create or update.
type TaskInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// Validate checks that the input has valid field values.
// Type checks on the raw body happen in DecodeTaskInput; this only covers the Go values.
func (in *TaskInput) Validate() error {
	var fields []FieldError
	if in.Title == "" {
		fields = append(fields, FieldError{Field: "title", Message: "is required"})
	}
	if in.Description == "" {
		fields = append(fields, FieldError{Field: "description", Message: "is required"})
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// apply copies the input fields onto t, leaving the id alone.
func (in TaskInput) apply(t *Task) {
	t.Title = in.Title
	t.Description = in.Description
	t.Completed = in.Completed
}

// FieldError describes one failing field of a request body.
// Field is empty when the problem concerns the body as a whole.
type FieldError struct {
	Field   string
	Message string
}

func (f FieldError) String() string {
	if f.Field == "" {
		return f.Message
	}
	return fmt.Sprintf("%s: %s", f.Field, f.Message)
}

// ValidationError reports client input that failed validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid task data"
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return strings.Join(parts, "; ")
}
