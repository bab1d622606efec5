package orders

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a failure so the transport layer can pick a status code.
type Kind string

const (
	KindProductNotFound   Kind = "ProductNotFound"
	KindVariantNotFound   Kind = "VariantNotFound"
	KindInsufficientStock Kind = "InsufficientStock"
	KindOrderNotFound     Kind = "OrderNotFound"
	KindLineItemNotFound  Kind = "LineItemNotFound"
	KindMissingProof      Kind = "MissingProof"
	KindUploadFailed      Kind = "UploadFailed"
	KindUnauthorized      Kind = "Unauthorized"
	KindValidation        Kind = "ValidationError"
	KindConflict          Kind = "Conflict"
	KindInternal          Kind = "Internal"
)

type Error struct {
	Kind    Kind
	Message string
	Meta    map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) with(key string, value any) *Error {
	if e.Meta == nil {
		e.Meta = map[string]any{}
	}
	e.Meta[key] = value
	return e
}

func internalError(err error, op string) *Error {
	return &Error{Kind: KindInternal, Message: op + " failed", Err: err}
}

// KindOf returns the Kind carried by err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// asError passes *Error values through and wraps everything else as internal.
func asError(err error, op string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return internalError(err, op)
}
