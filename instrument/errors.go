package instrument

import "errors"

// Kind classifies a top-level instrumentation failure. All five kinds are
// fatal: none are retried, and the caller is expected to report the
// diagnostic and exit non-zero.
type Kind int

const (
	// KindDecode means the input bytes were not a valid WebAssembly module.
	KindDecode Kind = iota
	// KindEncode means re-serialization of the instrumented module failed.
	KindEncode
	// KindAnchorMissing means the module does not export __log_call.
	KindAnchorMissing
	// KindNoCodeSection means the module has no code section to rewrite.
	KindNoCodeSection
	// KindIO means reading or writing the module file failed.
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindDecode:
		return "decode"
	case KindEncode:
		return "encode"
	case KindAnchorMissing:
		return "anchor-missing"
	case KindNoCodeSection:
		return "no-code-section"
	case KindIO:
		return "io"
	}
	return "unknown"
}

// Error is a typed instrumentation failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// ErrAnchorMissing is wrapped by an Error of KindAnchorMissing.
var ErrAnchorMissing = errors.New("module does not export __log_call")

// ErrNoCodeSection is wrapped by an Error of KindNoCodeSection.
var ErrNoCodeSection = errors.New("module has no code section")
