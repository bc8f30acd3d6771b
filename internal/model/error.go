package model

import (
	"errors"
	"fmt"
)

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON             = "INVALID_JSON"
	ErrCodeMissingField            = "MISSING_FIELD"
	ErrCodeInvalidQuantity         = "INVALID_QUANTITY"
	ErrCodeInvalidStatus           = "INVALID_STATUS"
	ErrCodeInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
	ErrCodeInvalidRating           = "INVALID_RATING"
	ErrCodeEmptyCart               = "EMPTY_CART"
	ErrCodeInvalidImage            = "INVALID_IMAGE"
	ErrCodeInvalidPrice            = "INVALID_PRICE"
	ErrCodeNotFound                = "NOT_FOUND"
	ErrCodeProductNotFound         = "PRODUCT_NOT_FOUND"
	ErrCodeUnauthorised            = "UNAUTHORIZED"
	ErrCodeForbidden               = "FORBIDDEN"
	ErrCodeInternalError           = "INTERNAL_ERROR"
)

// ErrorKind classifies a DomainError for transport mapping.
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindNotFound
	KindUnauthorised
	KindForbidden
	KindPersistence
)

// String returns a readable kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindUnauthorised:
		return "unauthorised"
	case KindForbidden:
		return "forbidden"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// DomainError is returned by services for failures the caller can act on.
type DomainError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches domain errors by kind, code and message so sentinel values work with errors.Is
// even after being copied.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code && e.Message == t.Message
}

// NewDomainError creates a new domain error
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// ValidationError builds a 400-class error.
func ValidationError(code, message string) *DomainError {
	return NewDomainError(KindValidation, code, message)
}

// NotFoundError builds a 404-class error.
func NotFoundError(message string) *DomainError {
	return NewDomainError(KindNotFound, ErrCodeNotFound, message)
}

// ForbiddenError builds a 403-class error.
func ForbiddenError(message string) *DomainError {
	return NewDomainError(KindForbidden, ErrCodeForbidden, message)
}

// PersistenceError wraps a store failure. The cause is kept for logging and never sent to clients.
func PersistenceError(message string, err error) *DomainError {
	return &DomainError{
		Kind:    KindPersistence,
		Code:    ErrCodeInternalError,
		Message: message,
		Err:     err,
	}
}

// KindOf reports the kind of err, or zero when err carries no DomainError.
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}

// ErrNotFound is returned by repositories when a row does not exist.
var ErrNotFound = errors.New("record not found")

// Common domain errors
var (
	ErrAddressRequired   = ValidationError(ErrCodeMissingField, "address required")
	ErrCartEmpty         = ValidationError(ErrCodeEmptyCart, "cart is empty")
	ErrInvalidQuantity   = ValidationError(ErrCodeInvalidQuantity, "quantity must be a positive integer")
	ErrInvalidStatus     = ValidationError(ErrCodeInvalidStatus, "status must be one of pending, accepted, completed, cancelled")
	ErrInvalidRating     = ValidationError(ErrCodeInvalidRating, "rating must be between 1 and 5")
	ErrRatingOrComment   = ValidationError(ErrCodeMissingField, "rating or comment is required")
	ErrProductRequired   = ValidationError(ErrCodeMissingField, "productId is required")
	ErrRequestFields     = ValidationError(ErrCodeMissingField, "address, phoneNumber and problemDescription are required")
	ErrInvalidTotalPrice = ValidationError(ErrCodeInvalidPrice, "totalPrice must not be negative")
	ErrInvalidImage      = ValidationError(ErrCodeInvalidImage, "image must be an image/* upload")
	ErrRequestIncomplete = ValidationError(ErrCodeInvalidStatus, "request must be completed before it can be rated")
	ErrProductNotFound   = NewDomainError(KindNotFound, ErrCodeProductNotFound, "product not found")
	ErrCartLineNotFound  = NotFoundError("cart item not found")
	ErrOrderNotFound     = NotFoundError("order not found")
	ErrRequestNotFound   = NotFoundError("plumber request not found")
	ErrAdminRequired     = ForbiddenError("admin privileges required")
	ErrNotOwner          = ForbiddenError("resource belongs to another user")
	ErrUnauthenticated   = NewDomainError(KindUnauthorised, ErrCodeUnauthorised, "authentication required")
)
