// Package errs defines the error taxonomy shared by every facet of the
// subsystem framework, so callers can tell failures apart by kind
// instead of parsing messages.
package errs

import "fmt"

// Kind distinguishes error categories raised across the framework.
type Kind string

const (
	InvalidArgument    Kind = "InvalidArgument"
	MutationAfterInit  Kind = "MutationAfterInit"
	DuplicateKind      Kind = "DuplicateKind"
	NotFound           Kind = "NotFound"
	PropertyConflict   Kind = "PropertyConflict"
	MissingDependency  Kind = "MissingDependency"
	CycleDetected      Kind = "CycleDetected"
	NoTransaction      Kind = "NoTransaction"
	DuplicatePattern   Kind = "DuplicatePattern"
	NoRoute            Kind = "NoRoute"
	InvalidMessage     Kind = "InvalidMessage"
	ContractViolation  Kind = "ContractViolation"
	Unauthorized       Kind = "Unauthorized"
	UnknownPKR         Kind = "Unknown PKR"
	UnknownPrincipal   Kind = "Unknown Principal"
	KernelAbsent       Kind = "KernelAbsent"
	QueueFull          Kind = "QueueFull"
)

// Error is the concrete error type raised by this module. Its message
// always contains the Kind's own text, so tests may assert on either
// errors.As or a message substring.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New builds an *Error for kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !asError(err, &e) {
		return false
	}
	return e.Kind == kind
}

// asError walks err's Unwrap chain for an *Error, as errors.As does
// for a single-error chain, without importing the errors package.
func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
