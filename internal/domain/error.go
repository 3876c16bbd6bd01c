package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrInvalidArgument = errors.New("invalid argument")

	// Fulfillment errors
	ErrSlotsExhausted = errors.New("all coaching slots for this month are booked")
	ErrOrderNotFound  = errors.New("order not found")

	// Gateway error classes; matched through GatewayError.Is
	ErrGatewayAuth        = errors.New("payment gateway rejected credentials")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrGatewayRejected    = errors.New("payment gateway rejected request")

	// Storage errors
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid database execution context")
)

// ValidationError describes malformed create-order input. It matches ErrInvalidArgument.
type ValidationError struct {
	Fields []string
}

func NewValidationError(fields ...string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidArgument }

// GatewayErrorKind classifies a provider failure.
type GatewayErrorKind int

const (
	// GatewayTransient covers transport errors, timeouts, 5xx and 429. Retriable.
	GatewayTransient GatewayErrorKind = iota
	// GatewayAuth is an authentication/configuration defect (wrong environment keys).
	GatewayAuth
	// GatewayRejected is a definitive 4xx rejection of the request itself.
	GatewayRejected
)

// GatewayError carries the provider's diagnostic code for a failed call.
type GatewayError struct {
	Op         string
	Kind       GatewayErrorKind
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "gateway %s failed", e.Op)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (http %d)", e.StatusCode)
	}
	if e.Code != "" {
		fmt.Fprintf(&b, " code=%s", e.Code)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *GatewayError) Unwrap() error { return e.Err }

func (e *GatewayError) Is(target error) bool {
	switch target {
	case ErrGatewayAuth:
		return e.Kind == GatewayAuth
	case ErrGatewayUnavailable:
		return e.Kind == GatewayTransient
	case ErrGatewayRejected:
		return e.Kind == GatewayRejected
	}
	return false
}

// Diagnostic returns the provider code when present, otherwise the HTTP status.
func (e *GatewayError) Diagnostic() string {
	if e.Code != "" {
		return e.Code
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("http_%d", e.StatusCode)
	}
	return "unreachable"
}
