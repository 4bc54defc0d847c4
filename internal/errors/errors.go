package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrCardNotFound is returned when a card is not found.
	ErrCardNotFound = errors.New("card not found")
	// ErrInsufficientBalance is returned when a debit exceeds the card balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInvalidAmount is returned when amount is missing, non-numeric or not positive.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrDuplicateLast4 is returned when another card already carries the same last4.
	ErrDuplicateLast4 = errors.New("a card with this last4 already exists")
	// ErrForbidden is returned when the operator's role does not allow card operations.
	ErrForbidden = errors.New("operator role not allowed")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors. Rejections never
// leave partial ledger state, so 4xx responses are safe to resubmit
// with corrected input.
func MapErrorToHTTP(err error) *HTTPError {
	switch {
	case errors.Is(err, ErrCardNotFound):
		return NewHTTPError(http.StatusNotFound, ErrCardNotFound.Error(), "CARD_NOT_FOUND")
	case errors.Is(err, ErrInsufficientBalance):
		return NewHTTPError(http.StatusBadRequest, ErrInsufficientBalance.Error(), "INSUFFICIENT_BALANCE")
	case errors.Is(err, ErrInvalidAmount):
		return NewHTTPError(http.StatusBadRequest, ErrInvalidAmount.Error(), "INVALID_AMOUNT")
	case errors.Is(err, ErrDuplicateLast4):
		return NewHTTPError(http.StatusBadRequest, ErrDuplicateLast4.Error(), "DUPLICATE_LAST4")
	case errors.Is(err, ErrForbidden):
		return NewHTTPError(http.StatusForbidden, ErrForbidden.Error(), "FORBIDDEN")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
