package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure so callers can decide whether to retry, degrade or abort.
type Kind uint8

const (
	Unknown Kind = iota
	// InvalidReference: the caller-supplied page reference has the wrong shape.
	InvalidReference
	// Upstream: non-success HTTP status or transport failure.
	Upstream
	// Parse: expected markup is absent.
	Parse
	// Storage: backend failure. Never used for a missing key.
	Storage
	// Configuration: fatal at startup.
	Configuration
)

func (k Kind) String() string {
	switch k {
	case InvalidReference:
		return "invalid_reference"
	case Upstream:
		return "upstream"
	case Parse:
		return "parse"
	case Storage:
		return "storage"
	case Configuration:
		return "configuration"
	default:
		return "unknown"
	}
}

// Permanent reports whether retrying an operation that failed with this kind is pointless.
func (k Kind) Permanent() bool {
	return k == InvalidReference || k == Configuration
}

// Error is an error object with a kind and an optional underlying error.
type Error struct {
	kind    Kind
	message []interface{}
	inner   error
}

// New returns a new error object with message formed from given arguments.
func New(kind Kind, msg ...interface{}) *Error {
	return &Error{
		kind:    kind,
		message: msg,
	}
}

// Error implements error.Error().
func (err *Error) Error() string {
	builder := strings.Builder{}
	builder.WriteByte('[')
	builder.WriteString(err.kind.String())
	builder.WriteString("] ")
	builder.WriteString(fmt.Sprint(err.message...))

	if err.inner != nil {
		builder.WriteString(" > ")
		builder.WriteString(err.inner.Error())
	}

	return builder.String()
}

func (err *Error) Base(e error) *Error {
	err.inner = e
	return err
}

func (err *Error) Kind() Kind {
	return err.kind
}

func (err *Error) Unwrap() error {
	return err.inner
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return Unknown
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func IsPermanent(err error) bool {
	return KindOf(err).Permanent()
}
