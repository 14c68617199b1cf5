package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeInvalidArgument ErrorType = "invalid_argument"
	ErrorTypeNotFound        ErrorType = "not_found"
	ErrorTypeIO              ErrorType = "io"
	ErrorTypeConfig          ErrorType = "config"
	ErrorTypeInternal        ErrorType = "internal"
)

// ThemeError is a structured error type with context.
type ThemeError struct {
	Type    ErrorType
	Code    string
	Message string
	Cause   error
	Context map[string]interface{}
	Hook    string
}

// Error formats the error as "[CODE] hook:name message: cause".
func (e *ThemeError) Error() string {
	var b strings.Builder
	if e.Code != "" {
		b.WriteString("[" + e.Code + "] ")
	}
	if e.Hook != "" {
		b.WriteString("hook:" + e.Hook + " ")
	}
	b.WriteString(e.Message)
	if e.Cause != nil {
		b.WriteString(": " + e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause error.
func (e *ThemeError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *ThemeError) Is(target error) bool {
	var t *ThemeError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *ThemeError) WithContext(key string, value interface{}) *ThemeError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithHook records the theme hook the error was raised for.
func (e *ThemeError) WithHook(hook string) *ThemeError {
	e.Hook = hook

	return e
}

func newError(typ ErrorType, code, message string, cause error) *ThemeError {
	return &ThemeError{Type: typ, Code: code, Message: message, Cause: cause}
}

// NewInvalidArgumentError creates an error for malformed caller input.
func NewInvalidArgumentError(code, message string) *ThemeError {
	return newError(ErrorTypeInvalidArgument, code, message, nil)
}

// NewNotFoundError creates an error for a missing page, fixture or asset.
func NewNotFoundError(code, message string) *ThemeError {
	return newError(ErrorTypeNotFound, code, message, nil)
}

func NewIOError(code, message string, cause error) *ThemeError {
	return newError(ErrorTypeIO, code, message, cause)
}

func NewConfigError(code, message string) *ThemeError {
	return newError(ErrorTypeConfig, code, message, nil)
}

func NewInternalError(code, message string, cause error) *ThemeError {
	return newError(ErrorTypeInternal, code, message, cause)
}

// IsInvalidArgument reports whether err was caused by malformed input.
func IsInvalidArgument(err error) bool {
	return hasType(err, ErrorTypeInvalidArgument)
}

// IsNotFound reports whether err describes something that does not exist.
func IsNotFound(err error) bool {
	return hasType(err, ErrorTypeNotFound)
}

func hasType(err error, typ ErrorType) bool {
	var te *ThemeError
	if errors.As(err, &te) {
		return te.Type == typ
	}

	return false
}

// ErrorHandler provides centralized error handling.
type ErrorHandler struct {
	logger Logger
}

// Logger interface for error logging.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle logs err. Caller mistakes such as a bad argument or a missing
// page are warnings; everything else is an error.
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil || h.logger == nil {
		return
	}

	var te *ThemeError
	switch {
	case !errors.As(err, &te):
		h.logger.Error(ctx, err, "Unhandled error occurred")
	case te.Type == ErrorTypeInvalidArgument || te.Type == ErrorTypeNotFound:
		h.logger.Warn(ctx, err, "Request could not be served", te.fields()...)
	default:
		h.logger.Error(ctx, err, "Error occurred", te.fields()...)
	}
}

func (e *ThemeError) fields() []interface{} {
	fields := []interface{}{"type", string(e.Type), "code", e.Code}
	if e.Hook != "" {
		fields = append(fields, "hook", e.Hook)
	}
	for k, v := range e.Context {
		fields = append(fields, k, v)
	}
	return fields
}

// StatusCode maps an error onto the HTTP status a preview response should carry.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsInvalidArgument(err):
		return http.StatusBadRequest
	case IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Common error codes.
const (
	ErrCodeNegativeTotal    = "ERR_NEGATIVE_TOTAL"
	ErrCodeInvalidWindow    = "ERR_INVALID_WINDOW"
	ErrCodeInvalidPath      = "ERR_INVALID_PATH"
	ErrCodePageNotFound     = "ERR_PAGE_NOT_FOUND"
	ErrCodeFixtureInvalid   = "ERR_FIXTURE_INVALID"
	ErrCodeFileNotFound     = "ERR_FILE_NOT_FOUND"
	ErrCodeConfigInvalid    = "ERR_CONFIG_INVALID"
	ErrCodeRenderFailed     = "ERR_RENDER_FAILED"
	ErrCodeInternalError    = "ERR_INTERNAL"
	ErrCodeValidationFailed = "ERR_VALIDATION_FAILED"
)

// FieldValidationError describes a single invalid configuration or fixture field.
type FieldValidationError struct {
	FieldName    string
	FieldValue   interface{}
	ErrorMessage string
}

// Error implements the error interface.
func (fve *FieldValidationError) Error() string {
	return fmt.Sprintf("validation error in field '%s': %s", fve.FieldName, fve.ErrorMessage)
}

// NewFieldValidationError creates a new field validation error.
func NewFieldValidationError(field string, value interface{}, message string) *FieldValidationError {
	return &FieldValidationError{
		FieldName:    field,
		FieldValue:   value,
		ErrorMessage: message,
	}
}

// ValidationErrorCollection represents a collection of validation errors.
type ValidationErrorCollection struct {
	Errors []*FieldValidationError
}

// Error implements the error interface.
func (vec *ValidationErrorCollection) Error() string {
	if len(vec.Errors) == 0 {
		return "no validation errors"
	}
	if len(vec.Errors) == 1 {
		return vec.Errors[0].Error()
	}

	return fmt.Sprintf("validation failed with %d errors", len(vec.Errors))
}

// AddField adds a field validation error to the collection.
func (vec *ValidationErrorCollection) AddField(field string, value interface{}, message string) {
	vec.Errors = append(vec.Errors, NewFieldValidationError(field, value, message))
}

// HasErrors returns true if there are any validation errors.
func (vec *ValidationErrorCollection) HasErrors() bool {
	return len(vec.Errors) > 0
}

// ToThemeError folds the collection into a single config error, or nil when empty.
func (vec *ValidationErrorCollection) ToThemeError() *ThemeError {
	if !vec.HasErrors() {
		return nil
	}

	messages := make([]string, 0, len(vec.Errors))
	context := make(map[string]interface{}, len(vec.Errors))
	for _, err := range vec.Errors {
		messages = append(messages, err.Error())
		context[err.FieldName] = err.FieldValue
	}

	return &ThemeError{
		Type:    ErrorTypeConfig,
		Code:    ErrCodeValidationFailed,
		Message: strings.Join(messages, "; "),
		Context: context,
	}
}
