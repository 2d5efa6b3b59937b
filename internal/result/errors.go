package result

import "fmt"

// ErrorKind classifies an AppError.
type ErrorKind string

const (
	KindValidation       ErrorKind = "VALIDATION"
	KindNetwork          ErrorKind = "NETWORK"
	KindNotFound         ErrorKind = "NOT_FOUND"
	KindPermissionDenied ErrorKind = "PERMISSION_DENIED"
	KindUnauthorized     ErrorKind = "UNAUTHORIZED"
	KindForbidden        ErrorKind = "FORBIDDEN"
	KindServer           ErrorKind = "SERVER"
	KindTimeout          ErrorKind = "TIMEOUT"
	KindDuplicate        ErrorKind = "DUPLICATE"
	KindUnknown          ErrorKind = "UNKNOWN"
)

// AppError is the single error shape surfaced to callers of the state layer.
type AppError struct {
	Kind    ErrorKind
	Message string
	Code    string
	Field   string
	Details map[string]any
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field %s)", e.Kind, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches another AppError by kind so errors.Is works on kinds.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind && (t.Code == "" || t.Code == e.Code)
}

// WithDetail returns a copy of e with key set in Details.
func (e *AppError) WithDetail(key string, value any) *AppError {
	dup := *e
	dup.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		dup.Details[k] = v
	}
	dup.Details[key] = value
	return &dup
}

// Validation reports a rejected input for field.
func Validation(message, field string) *AppError {
	return &AppError{Kind: KindValidation, Message: message, Field: field, Code: "VALIDATION_ERROR"}
}

// NotFound reports a missing entity.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s %s not found", resource, id),
		Code:    "NOT_FOUND",
		Details: map[string]any{"resource": resource, "id": id},
	}
}

// PermissionDenied reports an ownership violation for action.
func PermissionDenied(action string) *AppError {
	return &AppError{
		Kind:    KindPermissionDenied,
		Message: fmt.Sprintf("permission denied: %s", action),
		Code:    "PERMISSION_DENIED",
		Details: map[string]any{"action": action},
	}
}

// Duplicate reports a uniqueness conflict on resource.
func Duplicate(resource string) *AppError {
	return &AppError{
		Kind:    KindDuplicate,
		Message: fmt.Sprintf("%s already exists", resource),
		Code:    "DUPLICATE",
		Details: map[string]any{"resource": resource},
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{Kind: KindUnauthorized, Message: message, Code: "UNAUTHORIZED"}
}

func Forbidden(message string) *AppError {
	return &AppError{Kind: KindForbidden, Message: message, Code: "FORBIDDEN"}
}

func Server(message string) *AppError {
	return &AppError{Kind: KindServer, Message: message, Code: "SERVER_ERROR"}
}

func Network(message string) *AppError {
	return &AppError{Kind: KindNetwork, Message: message, Code: "NETWORK_ERROR"}
}

func Timeout(message string) *AppError {
	return &AppError{Kind: KindTimeout, Message: message, Code: "TIMEOUT"}
}

func Unknown(message string) *AppError {
	return &AppError{Kind: KindUnknown, Message: message, Code: "UNKNOWN"}
}
