// Package dto holds the JSON shapes written by the HTTP layer besides the
// serialized items themselves.
package dto

import "github.com/gofiber/fiber/v2"

// Error codes, in the shape REST clients of the route already understand.
const (
	CodeForbidden = "rest_forbidden"
	CodeNoRoute   = "rest_no_route"
	CodeInternal  = "rest_internal_error"
	CodeInvalid   = "rest_invalid_request"
)

// ErrorData carries the HTTP status inside an error body.
type ErrorData struct {
	Status int `json:"status"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Data    ErrorData `json:"data"`
}

// NewError builds an error body for status.
func NewError(status int, code, message string) ErrorResponse {
	return ErrorResponse{
		Code:    code,
		Message: message,
		Data:    ErrorData{Status: status},
	}
}

// Forbidden is the body returned when the permission gate denies a request.
func Forbidden() ErrorResponse {
	return NewError(fiber.StatusForbidden, CodeForbidden, "Sorry, you are not allowed to do that.")
}

// FromStatus maps a bare HTTP status to an error body.
func FromStatus(status int, message string) ErrorResponse {
	switch {
	case status == fiber.StatusNotFound:
		return NewError(status, CodeNoRoute, "No route was found matching the URL and request method.")
	case status == fiber.StatusForbidden:
		return Forbidden()
	case status >= 500:
		return NewError(status, CodeInternal, "Internal server error.")
	default:
		return NewError(status, CodeInvalid, message)
	}
}
