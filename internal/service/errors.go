package service

import (
	"errors"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain"
	"github.com/google/uuid"
)

var ErrForbidden = errors.New("forbidden: insufficient permissions")

type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

// validation collects field problems and returns nil when there are none.
type validation []string

func (v *validation) add(msg string) {
	*v = append(*v, msg)
}

func (v validation) err() error {
	if len(v) == 0 {
		return nil
	}
	return &ValidationError{Fields: v}
}

// Caller is the authenticated identity behind a request.
type Caller struct {
	UserID     uuid.UUID
	Role       domain.Role
	ProviderID *uuid.UUID
	IP         string
	RequestID  string
}

type AuditEntry struct {
	Caller       Caller
	Action       domain.AuditAction
	ResourceType string
	ResourceID   string
	Changes      map[string]any
}
