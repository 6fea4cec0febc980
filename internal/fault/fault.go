package fault

import (
	"errors"
	"fmt"
)

// Kind tags a failure with the pipeline stage that can explain it.
type Kind int

const (
	KindUnknown Kind = iota
	KindUsage
	KindFileAccess
	KindParse
	KindAuthentication
	KindRateLimit
	KindService
	KindNetwork
	KindWrite
)

func (k Kind) String() string {
	switch k {
	case KindUsage:
		return "usage"
	case KindFileAccess:
		return "file_access"
	case KindParse:
		return "parse"
	case KindAuthentication:
		return "authentication"
	case KindRateLimit:
		return "rate_limit"
	case KindService:
		return "service"
	case KindNetwork:
		return "network"
	case KindWrite:
		return "write"
	default:
		return "unknown"
	}
}

// ExitCode is the process exit status for the kind.
func (k Kind) ExitCode() int {
	if k == KindUnknown {
		return 1
	}
	return int(k) + 1
}

// Error is a tagged failure. Op names the failing step, Path is set for
// filesystem failures.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg = fmt.Sprintf("%s %s", msg, e.Path)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind, so errors.Is(err, &Error{Kind: KindParse}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Path == "" && t.Err == nil
}

func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func WithPath(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

func FileAccess(op, path string, err error) *Error { return WithPath(KindFileAccess, op, path, err) }
func Parse(op, path string, err error) *Error      { return WithPath(KindParse, op, path, err) }
func Write(op, path string, err error) *Error      { return WithPath(KindWrite, op, path, err) }
func Usage(op string, err error) *Error            { return New(KindUsage, op, err) }

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// ExitCode maps err to a process exit status. nil maps to 0.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return KindOf(err).ExitCode()
}
