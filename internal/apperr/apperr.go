// Package apperr defines the error kinds returned by every component
// boundary.  Each error carries a stable machine-readable code plus a
// human message; handlers translate them into JSON bodies and HTTP
// statuses.  Infrastructure failures that carry no domain meaning are
// reported as CodeInternal without detail.
package apperr

import "net/http"

// Machine-readable error codes.  These are part of the API contract and
// must not change once clients depend on them.
const (
	CodeValidation          = "ValidationError"
	CodeDuplicateEmail      = "DuplicateEmail"
	CodeInvalidQuestionSet  = "InvalidQuestionSet"
	CodeInvalidCredentials  = "InvalidCredentials"
	CodeUnauthenticated     = "Unauthenticated"
	CodeForbidden           = "Forbidden"
	CodeInvalidTransition   = "InvalidTransition"
	CodeDuplicateAssignment = "DuplicateAssignment"
	CodeAlreadySubmitted    = "AlreadySubmitted"
	CodeInvalidScore        = "InvalidScore"
	CodeWrongAnswer         = "WrongAnswer"
	CodeSessionExpired      = "SessionExpired"
	CodeNotFound            = "NotFound"
	CodeInternal            = "Internal"
)

// Error is a typed domain error.  Details carries optional field-level
// messages for validation failures.
type Error struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

// New builds an Error with the given code and message.
func New(code, message string, details ...string) *Error {
	return &Error{Code: code, Message: message, Details: details}
}

// HTTPStatus maps an error code to its HTTP status class.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeValidation, CodeInvalidQuestionSet, CodeInvalidScore, CodeWrongAnswer:
		return http.StatusBadRequest
	case CodeInvalidCredentials, CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeDuplicateEmail, CodeDuplicateAssignment, CodeAlreadySubmitted, CodeInvalidTransition:
		return http.StatusConflict
	case CodeSessionExpired:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}
