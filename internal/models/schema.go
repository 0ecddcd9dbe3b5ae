package models

import (
	_ "embed"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/task_input.json
var taskInputSchemaJSON string

var taskInputSchema = jsonschema.MustCompileString("task_input.json", taskInputSchemaJSON)

// DecodeTaskInput parses a request body into a TaskInput.
//
// The raw JSON is checked against the task input schema before it is bound to the
// struct, so a missing field, a null, an empty string or a string "true" standing in
// for a boolean are all rejected instead of silently becoming zero values.
func DecodeTaskInput(data []byte) (TaskInput, error) {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return TaskInput{}, &ValidationError{Fields: []FieldError{{Message: "body must be valid JSON"}}}
	}

	if err := taskInputSchema.Validate(raw); err != nil {
		return TaskInput{}, schemaValidationError(err)
	}

	var in TaskInput
	if err := json.Unmarshal(data, &in); err != nil {
		return TaskInput{}, &ValidationError{Fields: []FieldError{{Message: err.Error()}}}
	}
	if err := in.Validate(); err != nil {
		return TaskInput{}, err
	}
	return in, nil
}

func schemaValidationError(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &ValidationError{Fields: []FieldError{{Message: err.Error()}}}
	}

	result := &ValidationError{}
	collectSchemaErrors(result, ve)
	return result
}

func collectSchemaErrors(result *ValidationError, err *jsonschema.ValidationError) {
	if len(err.Causes) == 0 {
		result.Fields = append(result.Fields, FieldError{
			Field:   jsonPointerToPath(err.InstanceLocation),
			Message: err.Message,
		})
		return
	}

	for _, cause := range err.Causes {
		collectSchemaErrors(result, cause)
	}
}

// jsonPointerToPath turns "/tags/0/name" into "tags[0].name".
func jsonPointerToPath(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "#")
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return ""
	}

	var path string
	for _, part := range strings.Split(ptr, "/") {
		part = strings.ReplaceAll(part, "~1", "/")
		part = strings.ReplaceAll(part, "~0", "~")
		if part == "" {
			continue
		}
		if idx, err := strconv.Atoi(part); err == nil {
			path += "[" + strconv.Itoa(idx) + "]"
			continue
		}
		if path == "" {
			path = part
		} else {
			path += "." + part
		}
	}
	return path
}
