package config

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigNotFound indicates a configuration file was not found.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidYAML indicates YAML parsing failed.
	ErrInvalidYAML = errors.New("invalid YAML syntax")

	// ErrLLMProviderNotFound indicates an LLM provider was not found in the registry.
	ErrLLMProviderNotFound = errors.New("LLM provider not found")
)

// ValidationError wraps a configuration validation failure with the
// section and field it occurred in.
type ValidationError struct {
	Section string
	Name    string
	Field   string
	Err     error
}

// Error returns a formatted error message.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s '%s': field '%s': %v", e.Section, e.Name, e.Field, e.Err)
	}
	return fmt.Sprintf("%s '%s': %v", e.Section, e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new ValidationError.
func NewValidationError(section, name, field string, err error) *ValidationError {
	return &ValidationError{Section: section, Name: name, Field: field, Err: err}
}

// LoadError wraps a configuration loading failure with file context.
type LoadError struct {
	File string
	Err  error
}

// Error returns a formatted error message.
func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.File, e.Err)
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// NewLoadError creates a new LoadError.
func NewLoadError(file string, err error) *LoadError {
	return &LoadError{File: file, Err: err}
}
