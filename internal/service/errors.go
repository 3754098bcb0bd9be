package service

import "github.com/pkg/errors"

type ErrorCode string

const (
	ErrorCodeInvalidBody     ErrorCode = "INVALID_BODY"
	ErrorCodeInvalidQuery    ErrorCode = "INVALID_QUERY"
	ErrorCodeAuthFailed      ErrorCode = "AUTH_FAILED"
	ErrorCodeForbidden       ErrorCode = "FORBIDDEN"
	ErrorCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrorCodeAlreadyExists   ErrorCode = "ALREADY_EXISTS"
	ErrorCodeProjectFull     ErrorCode = "PROJECT_FULL"
	ErrorCodeNotPending      ErrorCode = "NOT_PENDING"
	ErrorCodeNotCollaborator ErrorCode = "NOT_COLLABORATOR"
	ErrorCodeUnspecified     ErrorCode = "UNSPECIFIED"
)

type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func NewServiceError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

func (e *Error) Error() string {
	return e.Message
}

// txError extracts the service error returned by a transaction body. Any
// other failure, such as a failed commit, is reported as unspecified.
func txError(err error) *Error {
	if err == nil {
		return nil
	}
	var res *Error
	if errors.As(err, &res) {
		return res
	}
	return NewServiceError(ErrorCodeUnspecified, "transaction failed")
}
