package common

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/joseph-ayodele/invoice-vouchers/constants"
)

// Error codes. AppError values compare equal under errors.Is when codes match.
const (
	CodeValidation  = "VALIDATION_ERROR"
	CodeOCR         = "OCR_FAILURE"
	CodeExtraction  = "EXTRACTION_FAILURE"
	CodeCompliance  = "COMPLIANCE_FAILURE"
	CodePersistence = "PERSISTENCE_FAILURE"
	CodeNotFound    = "NOT_FOUND"
	CodeConfig      = "CONFIG_ERROR"
)

// Failure reasons carried on adapter errors.
const (
	ReasonTimeout        = "timeout"
	ReasonProvider       = "provider_error"
	ReasonEmptyText      = "empty_text"
	ReasonEmptyResponse  = "empty_response"
	ReasonInvalidJSON    = "invalid_json"
	ReasonSchemaMismatch = "schema_mismatch"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Reason  string
	Fields  []ValidationError
	Cause   error
}

func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(e.Code)
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Fields) > 0 {
		b.WriteString(": ")
		b.WriteString(JoinValidationErrors(e.Fields))
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches any AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is checks.
var (
	ErrValidation   = &AppError{Code: CodeValidation}
	ErrOCRFailure   = &AppError{Code: CodeOCR}
	ErrExtraction   = &AppError{Code: CodeExtraction}
	ErrCompliance   = &AppError{Code: CodeCompliance}
	ErrPersistence  = &AppError{Code: CodePersistence}
	ErrNotFound     = &AppError{Code: CodeNotFound}
	ErrConfig       = &AppError{Code: CodeConfig}
	ErrInvalidInput = errors.New("invalid input")
)

// NewAppError creates an AppError.
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewValidationFailure reports every failed rule at once.
func NewValidationFailure(message string, fields []ValidationError) *AppError {
	return &AppError{Code: CodeValidation, Message: message, Fields: fields}
}

// NewOCRFailure, NewExtractionFailure and NewComplianceFailure build adapter
// errors; reason is one of the Reason* constants.
func NewOCRFailure(reason string, cause error) *AppError {
	return adapterError(CodeOCR, "ocr", reason, cause)
}

func NewExtractionFailure(reason string, cause error) *AppError {
	return adapterError(CodeExtraction, "invoice extraction", reason, cause)
}

func NewComplianceFailure(reason string, cause error) *AppError {
	return adapterError(CodeCompliance, "compliance analysis", reason, cause)
}

// NewPersistenceFailure wraps a storage error.
func NewPersistenceFailure(op string, cause error) *AppError {
	return &AppError{Code: CodePersistence, Message: op, Cause: cause}
}

func adapterError(code, what, reason string, cause error) *AppError {
	msg := what + " failed"
	if reason != "" {
		msg = fmt.Sprintf("%s (%s)", msg, reason)
	}
	return &AppError{Code: code, Message: msg, Reason: reason, Cause: cause}
}

// ReasonFor classifies an adapter error: deadline hits are "timeout",
// everything else is fallback.
func ReasonFor(ctx context.Context, err error, fallback string) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ReasonTimeout
	}
	return fallback
}

// ProcessingFailedError is the single error a caller sees when a run ends
// in the failed state. Cause holds the typed adapter/validation/storage error.
type ProcessingFailedError struct {
	Stage   constants.Stage
	Message string
	Cause   error
}

func (e *ProcessingFailedError) Error() string {
	return fmt.Sprintf("processing failed at %s: %s", e.Stage, e.Message)
}

func (e *ProcessingFailedError) Unwrap() error {
	return e.Cause
}

// NewProcessingFailed wraps cause as a failure of stage.
func NewProcessingFailed(stage constants.Stage, cause error) *ProcessingFailedError {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &ProcessingFailedError{Stage: stage, Message: msg, Cause: cause}
}

// AsAppError returns the first AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
