// Package protocol defines the wire envelope, payloads and error codes of
// the srp-web authentication API.
package protocol

import "fmt"

// ErrorCode represents a standardized error code for the srp-web API.
type ErrorCode string

// API error codes.
const (
	// ErrCodeAuthenticationFailed indicates the exchange did not produce a
	// verified session. It deliberately carries no finer distinction.
	ErrCodeAuthenticationFailed ErrorCode = "AUTHENTICATION_FAILED"
	// ErrCodeMalformedMessage indicates a frame that failed to decode or
	// carried out-of-range values.
	ErrCodeMalformedMessage ErrorCode = "MALFORMED_MESSAGE"
	// ErrCodeProtocolError indicates a frame that violated the exchange
	// ordering.
	ErrCodeProtocolError ErrorCode = "PROTOCOL_ERROR"
	// ErrCodeExchangeTimeout indicates the exchange deadline passed.
	ErrCodeExchangeTimeout ErrorCode = "EXCHANGE_TIMEOUT"
	// ErrCodeRateLimitExceeded indicates too many attempts from the client.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// ErrCodeSessionExpired indicates the session token has expired.
	ErrCodeSessionExpired ErrorCode = "SESSION_EXPIRED"
	// ErrCodeSessionInvalid indicates the session token is invalid.
	ErrCodeSessionInvalid ErrorCode = "SESSION_INVALID"
	// ErrCodeUnauthorized indicates the request lacks authentication.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// ErrCodeUserExists indicates an enrollment for an already-enrolled
	// username.
	ErrCodeUserExists ErrorCode = "USER_EXISTS"
	// ErrCodeInvalidRequest indicates the request payload is invalid.
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"

	// ErrCodeShuttingDown indicates the service is shutting down.
	ErrCodeShuttingDown ErrorCode = "SHUTTING_DOWN"
	// ErrCodeSystemError indicates a server-side failure unrelated to the
	// request.
	ErrCodeSystemError ErrorCode = "SYSTEM_ERROR"
)

// ErrorResponse represents a standardized API error response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *ErrorResponse) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError creates a new ErrorResponse.
func NewError(code ErrorCode, message string) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Message: message,
	}
}

// NewErrorWithDetails creates a new ErrorResponse with details.
func NewErrorWithDetails(code ErrorCode, message, details string) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Common error constructors for convenience

// NewAuthenticationFailedError creates the generic authentication failure.
// Every failed exchange answers with exactly this error, whatever the
// underlying reason.
func NewAuthenticationFailedError() *ErrorResponse {
	return NewError(ErrCodeAuthenticationFailed, "Authentication failed")
}

// NewMalformedMessageError creates a malformed message error.
func NewMalformedMessageError(details string) *ErrorResponse {
	return NewErrorWithDetails(ErrCodeMalformedMessage, "Malformed message", details)
}

// NewProtocolError creates a protocol ordering error.
func NewProtocolError() *ErrorResponse {
	return NewError(ErrCodeProtocolError, "Message violates exchange order")
}

// NewExchangeTimeoutError creates an exchange timeout error.
func NewExchangeTimeoutError() *ErrorResponse {
	return NewError(ErrCodeExchangeTimeout, "Exchange timed out")
}

// NewRateLimitExceededError creates a rate limit exceeded error.
func NewRateLimitExceededError(retryAfter int) *ErrorResponse {
	return NewErrorWithDetails(ErrCodeRateLimitExceeded, "Rate limit exceeded", fmt.Sprintf("Retry after %d seconds", retryAfter))
}

// NewSessionExpiredError creates a session expired error.
func NewSessionExpiredError() *ErrorResponse {
	return NewError(ErrCodeSessionExpired, "Session token has expired")
}

// NewSessionInvalidError creates a session invalid error.
func NewSessionInvalidError() *ErrorResponse {
	return NewError(ErrCodeSessionInvalid, "Session token is invalid")
}

// NewUnauthorizedError creates an unauthorized error.
func NewUnauthorizedError() *ErrorResponse {
	return NewError(ErrCodeUnauthorized, "Authentication required")
}

// NewUserExistsError creates a user exists error.
func NewUserExistsError(username string) *ErrorResponse {
	return NewErrorWithDetails(ErrCodeUserExists, "User is already enrolled", username)
}

// NewInvalidRequestError creates an invalid request error.
func NewInvalidRequestError(details string) *ErrorResponse {
	return NewErrorWithDetails(ErrCodeInvalidRequest, "Invalid request", details)
}

// NewShuttingDownError creates a shutting down error.
func NewShuttingDownError() *ErrorResponse {
	return NewError(ErrCodeShuttingDown, "Service is shutting down")
}

// NewSystemError creates a system error.
func NewSystemError() *ErrorResponse {
	return NewError(ErrCodeSystemError, "Internal error")
}
