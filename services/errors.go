// Package services holds the issue, comment, workflow and query operations. Every
// operation takes the caller's identity explicitly and validates and authorizes before
// it writes anything.
package services

import (
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/linesmerrill/urban-issue-api/models"
)

// Sentinel errors, wrapped with the resource or reason
var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("conflict")
)

// ValidationError carries every violated input constraint
type ValidationError struct {
	Fields []models.FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func invalid(field, message string) error {
	return &ValidationError{Fields: []models.FieldError{{Field: field, Message: message}}}
}

func validate(s interface{}) error {
	if fields := models.Validate(s); len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func notFound(resource string) error {
	return fmt.Errorf("%s: %w", resource, ErrNotFound)
}

func forbidden(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrForbidden)
}

// storeErr maps a missing document to NotFound and wraps anything else
func storeErr(resource string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return notFound(resource)
	}
	return fmt.Errorf("%s store: %w", resource, err)
}
