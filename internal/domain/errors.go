package domain

import "fmt"

// Error types for consistent error handling across the API.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrUnsupportedFormat indicates an upload whose extension or content type
// is not one of the recognised formats.
type ErrUnsupportedFormat struct {
	Format string
}

func (e *ErrUnsupportedFormat) Error() string {
	if e.Format == "" {
		return "Unsupported file type"
	}
	return fmt.Sprintf("Unsupported file type: %s", e.Format)
}

// ErrMalformedInput indicates bytes that do not parse as the claimed format.
type ErrMalformedInput struct {
	Format string
	Err    error
}

func (e *ErrMalformedInput) Error() string {
	return fmt.Sprintf("Failed to parse %s: %v", e.Format, e.Err)
}

func (e *ErrMalformedInput) Unwrap() error {
	return e.Err
}

// ErrInvalidRecord indicates a row that is missing a required field or
// whose field cannot be coerced. Row is zero-based within the batch.
type ErrInvalidRecord struct {
	Row     int
	Field   string
	Message string
}

func (e *ErrInvalidRecord) Error() string {
	return fmt.Sprintf("invalid record at row %d: field '%s' %s", e.Row, e.Field, e.Message)
}

// ErrPersistence indicates the record store was unreachable or rejected a write.
type ErrPersistence struct {
	Operation string
	Err       error
}

func (e *ErrPersistence) Error() string {
	return fmt.Sprintf("persistence failure [%s]: %v", e.Operation, e.Err)
}

// IsWrite reports whether the failed operation was a write.
func (e *ErrPersistence) IsWrite() bool {
	switch e.Operation {
	case "append", "create_user", "save_contact":
		return true
	}
	return false
}

func (e *ErrPersistence) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrPayloadTooLarge indicates an upload above the configured size limit.
type ErrPayloadTooLarge struct {
	Limit int64
}

func (e *ErrPayloadTooLarge) Error() string {
	return fmt.Sprintf("file too large: limit is %d bytes", e.Limit)
}

// ErrForbidden indicates the user lacks permission for the operation.
type ErrForbidden struct {
	Action string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Action)
}

// ErrUnauthorized indicates invalid credentials or token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrConflict indicates a resource already exists (e.g. duplicate username).
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}
