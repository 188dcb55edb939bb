package engine

import "fmt"

// Error codes returned by engine operations.
const (
	CodeValidation  = "VALIDATION_ERROR"
	CodeNotFound    = "NOT_FOUND"
	CodePersistence = "PERSISTENCE_ERROR"
	CodeClosed      = "ENGINE_CLOSED"
)

// Error is the typed outcome of a failed mutation. The engine never
// panics on bad input; callers branch on Code to decide what to render.
type Error struct {
	Code    string
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func validationError(op, message string) *Error {
	return &Error{Code: CodeValidation, Op: op, Message: message}
}

func notFoundError(op, id string) *Error {
	return &Error{Code: CodeNotFound, Op: op, Message: fmt.Sprintf("item %s not found", id)}
}

func persistError(op string, err error) *Error {
	return &Error{Code: CodePersistence, Op: op, Message: "persistence failed", Err: err}
}

func closedError(op string) *Error {
	return &Error{Code: CodeClosed, Op: op, Message: "engine is closed"}
}
