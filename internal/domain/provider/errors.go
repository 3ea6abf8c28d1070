package provider

import "errors"

var (
	ErrProviderNotFound  = errors.New("provider not found")
	ErrSpecialtyMismatch = errors.New("provider does not practice this specialty")
	ErrAbsenceNotFound   = errors.New("absence period not found")
)
