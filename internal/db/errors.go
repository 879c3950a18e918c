package db

import (
	"errors"
	"fmt"
)

// Kind classifies a backend failure so the pipeline and API can report it
// without dialect-specific checks.
type Kind string

const (
	KindSyntax       Kind = "syntax"
	KindExecution    Kind = "execution"
	KindConnectivity Kind = "connectivity"
	KindPermission   Kind = "permission"
)

type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

func NewError(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

// KindOf extracts the classification from an error chain, defaulting to
// KindExecution for unclassified failures.
func KindOf(err error) Kind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return KindExecution
}
