package raytrace

import "fmt"

// ErrorKind enumerates the recoverable failure categories the engine reports.
type ErrorKind int

const (
	// KindInvalidGeometry covers zero-triangle meshes, NaN vertices, or
	// meshes consisting solely of degenerate triangles.
	KindInvalidGeometry ErrorKind = iota
	// KindInvalidParams covers negative counts, Δt <= 0, T_max < Δt,
	// absorption outside [0,1], and empty band sets.
	KindInvalidParams
	// KindNotReady is returned when simulate is attempted before geometry
	// has been set.
	KindNotReady
	// KindCancelled marks a run stopped by a terminate/cancel between batches.
	KindCancelled
	// KindInternal marks an aborted run due to excessive per-ray numerical
	// failures (the aborted-ray count is given in Error.Msg).
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidGeometry:
		return "InvalidGeometry"
	case KindInvalidParams:
		return "InvalidParams"
	case KindNotReady:
		return "NotReady"
	case KindCancelled:
		return "Cancelled"
	case KindInternal:
		return "InternalError"
	default:
		return "Unknown"
	}
}

// Error is the engine's typed error. Kind is comparable via errors.Is so
// callers can branch on failure category without string matching.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Is reports whether target is an *Error with the same Kind, regardless of
// message — so errors.Is(err, raytrace.ErrNotReady) works for any NotReady.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Sentinel errors for errors.Is comparisons; Msg is irrelevant for matching.
var (
	ErrInvalidGeometry = &Error{Kind: KindInvalidGeometry}
	ErrInvalidParams   = &Error{Kind: KindInvalidParams}
	ErrNotReady        = &Error{Kind: KindNotReady}
	ErrCancelled       = &Error{Kind: KindCancelled}
	ErrInternal        = &Error{Kind: KindInternal}
)
