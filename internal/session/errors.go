package session

import (
	"errors"

	"github.com/vietddude/fluxgen/internal/core/domain"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrDuplicateModel  = errors.New("model already registered")
	ErrEmptyModelID    = errors.New("model id is empty")
)

// DiagnosedError is a provider failure that has already been classified.
type DiagnosedError struct {
	Diagnosis domain.ErrorDiagnosis
}

func (e *DiagnosedError) Error() string {
	return string(e.Diagnosis.Category) + ": " + e.Diagnosis.RawMessage
}
