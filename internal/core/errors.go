package core

import "fmt"

// ErrorKind classifies expected failures so the HTTP layer can map them to a
// status without inspecting codes.
type ErrorKind int

const (
	// KindValidation covers malformed or missing input, caught before any
	// store mutation.
	KindValidation ErrorKind = iota
	// KindNotFound covers references to entities that do not exist or are
	// not owned by the requesting user.
	KindNotFound
	// KindBusinessRule covers operations rejected by accounting rules:
	// insufficient funds, exceeded targets, review preconditions.
	KindBusinessRule
	// KindIntegrity covers states that indicate a prior bug, such as a
	// missing effect row. Surfaced, never silently recovered.
	KindIntegrity
	// KindExternal covers failures of external collaborators such as the
	// exchange-rate provider. Retryable from the caller's point of view.
	KindExternal
)

// Error is the discriminated failure every engine operation returns for
// expected conditions. Code is a stable machine identifier in the form
// "Operation.Reason".
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func ValidationError(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

func NotFoundError(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

func BusinessError(code, message string) *Error {
	return &Error{Kind: KindBusinessRule, Code: code, Message: message}
}

func IntegrityError(code, message string) *Error {
	return &Error{Kind: KindIntegrity, Code: code, Message: message}
}

func ExternalError(code, message string) *Error {
	return &Error{Kind: KindExternal, Code: code, Message: message}
}
