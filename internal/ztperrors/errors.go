// Package ztperrors defines the error taxonomy shared by every stage of a
// watch batch. Components wrap failures in an *Error carrying one Kind; the
// command layer decides how to terminate based on that Kind.
package ztperrors

import (
	"errors"
	"fmt"
)

// Kind categorizes why a batch failed.
type Kind int

const (
	// KindUnknown is reported for errors that were never tagged.
	KindUnknown Kind = iota
	// KindTransport covers watch, list, apply and delete calls failing at the
	// network or command layer.
	KindTransport
	// KindData covers malformed watch payloads and missing metadata.
	KindData
	// KindReconciliation covers failures while comparing desired and live policy state.
	KindReconciliation
	// KindExternalTool covers the policy renderer reporting diagnostics.
	KindExternalTool
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindData:
		return "data"
	case KindReconciliation:
		return "reconciliation"
	case KindExternalTool:
		return "external-tool"
	default:
		return "unknown"
	}
}

// Error is a kind-tagged failure of one batch operation.
type Error struct {
	// Kind categorizes the failure.
	Kind Kind
	// Op names the operation that failed, e.g. "watch siteconfigs".
	Op string
	// Err is the underlying error.
	Err error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s error: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same Kind.
// This lets callers write errors.Is(err, &ztperrors.Error{Kind: ztperrors.KindData}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Transport wraps err as a transport failure of op.
func Transport(op string, err error) error {
	return newError(KindTransport, op, err)
}

// Data wraps err as a data failure of op.
func Data(op string, err error) error {
	return newError(KindData, op, err)
}

// Reconciliation wraps err as a reconciliation failure of op.
func Reconciliation(op string, err error) error {
	return newError(KindReconciliation, op, err)
}

// ExternalTool wraps err as an external tool failure of op.
func ExternalTool(op string, err error) error {
	return newError(KindExternalTool, op, err)
}

// KindOf returns the Kind of the outermost *Error in err's chain,
// or KindUnknown if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
