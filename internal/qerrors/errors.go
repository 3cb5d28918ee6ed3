// Package qerrors defines curq's closed query-error taxonomy (spec.md
// §4.10) and the classifier that maps raw engine/transport errors into it.
//
// The sentinel style mirrors the teacher's internal/storage/sqlite/errors.go
// and internal/rpc/errors.go: plain errors.New values, errors.Is/errors.As
// for identity, fmt.Errorf("%w", ...) for wrapping. Only the engine-text
// classifier (classify.go) uses string matching, and only because the
// engine is deliberately treated as a black box (spec.md §9).
package qerrors

import "errors"

// ErrorKind is the closed taxonomy of query-facing error categories.
type ErrorKind int

const (
	KindInvalidQuery ErrorKind = iota
	KindUnknownColumn
	KindUnknownTable
	KindSyntaxError
	KindAccessDenied
	KindNotFound
	KindTransient
	KindConflict
	KindCancelled
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidQuery:
		return "InvalidQuery"
	case KindUnknownColumn:
		return "UnknownColumn"
	case KindUnknownTable:
		return "UnknownTable"
	case KindSyntaxError:
		return "SyntaxError"
	case KindAccessDenied:
		return "AccessDenied"
	case KindNotFound:
		return "NotFound"
	case KindTransient:
		return "Transient"
	case KindConflict:
		return "Conflict"
	case KindCancelled:
		return "Cancelled"
	case KindInternal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// QueryError is the typed error surfaced to callers of the dispatcher and
// materializer. The raw engine/transport error is preserved in Original but
// is never shown as the primary message (spec.md §7).
type QueryError struct {
	Kind        ErrorKind
	Message     string
	Suggestions []string
	Original    error

	// CorrelationID is populated for KindInternal errors built by Classify
	// (and repeated in Suggestions), so a failure can be referred to without
	// leaking raw error text to the caller.
	CorrelationID string
}

func (e *QueryError) Error() string {
	return e.Message
}

func (e *QueryError) Unwrap() error {
	return e.Original
}

// Is supports errors.Is(err, qerrors.ErrConflict) etc. by comparing Kind
// against the target's kind when target is any *QueryError; Message and
// the other fields are not compared.
func (e *QueryError) Is(target error) bool {
	t, ok := target.(*QueryError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs a QueryError of the given kind with an actionable message,
// never embedding the raw error text in Message.
func New(kind ErrorKind, message string, suggestions ...string) *QueryError {
	return &QueryError{Kind: kind, Message: message, Suggestions: suggestions}
}

// Wrap constructs a QueryError of the given kind, preserving raw as the
// diagnostic Original field.
func Wrap(kind ErrorKind, message string, raw error, suggestions ...string) *QueryError {
	return &QueryError{Kind: kind, Message: message, Suggestions: suggestions, Original: raw}
}

// sentinels usable with errors.Is for kind-only comparison.
var (
	ErrInvalidQuery   = &QueryError{Kind: KindInvalidQuery}
	ErrUnknownColumn  = &QueryError{Kind: KindUnknownColumn}
	ErrUnknownTable   = &QueryError{Kind: KindUnknownTable}
	ErrSyntaxError    = &QueryError{Kind: KindSyntaxError}
	ErrAccessDenied   = &QueryError{Kind: KindAccessDenied}
	ErrNotFound       = &QueryError{Kind: KindNotFound}
	ErrTransient      = &QueryError{Kind: KindTransient}
	ErrConflict       = &QueryError{Kind: KindConflict}
	ErrCancelled      = &QueryError{Kind: KindCancelled}
	ErrInternal       = &QueryError{Kind: KindInternal}
)

// KindOf extracts the ErrorKind from err if it is (or wraps) a *QueryError,
// defaulting to KindInternal otherwise.
func KindOf(err error) ErrorKind {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Kind
	}
	return KindInternal
}
