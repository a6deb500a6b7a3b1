package install

import (
	"errors"
	"fmt"
)

// Kind classifies install failures. Every failed Apply, Revert or
// CreateSymlink returns an *Error of exactly one kind.
type Kind int

const (
	KindSymlinkMissing Kind = iota + 1
	KindStagingWriteFailed
	KindNotEnoughSpace
	KindCopyFailed
	KindApplyVerificationFailed
	KindRevertFailed
)

var kindNames = map[Kind]string{
	KindSymlinkMissing:          "SymlinkMissing",
	KindStagingWriteFailed:      "StagingWriteFailed",
	KindNotEnoughSpace:          "NotEnoughSpace",
	KindCopyFailed:              "CopyFailed",
	KindApplyVerificationFailed: "ApplyVerificationFailed",
	KindRevertFailed:            "RevertFailed",
}

var kindMessages = map[Kind]string{
	KindSymlinkMissing:          "the system hosts file is not linked to the install target",
	KindStagingWriteFailed:      "could not write the generated hosts file",
	KindNotEnoughSpace:          "not enough space on the target partition",
	KindCopyFailed:              "could not copy the hosts file to its target",
	KindApplyVerificationFailed: "the installed hosts file could not be verified",
	KindRevertFailed:            "problem reverting the hosts file",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Message returns the stable user-facing status message for k.
func (k Kind) Message() string {
	if msg, ok := kindMessages[k]; ok {
		return msg
	}
	return "unknown install error"
}

// Error is a typed install failure with an optional underlying cause.
type Error struct {
	Kind Kind
	Err  error
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.Message()
	}
	return e.Kind.Message() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so the sentinels below work
// with errors.Is regardless of the cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrSymlinkMissing          = &Error{Kind: KindSymlinkMissing}
	ErrStagingWriteFailed      = &Error{Kind: KindStagingWriteFailed}
	ErrNotEnoughSpace          = &Error{Kind: KindNotEnoughSpace}
	ErrCopyFailed              = &Error{Kind: KindCopyFailed}
	ErrApplyVerificationFailed = &Error{Kind: KindApplyVerificationFailed}
	ErrRevertFailed            = &Error{Kind: KindRevertFailed}
)

// ErrBusy is returned when an apply, revert or symlink operation is already
// in flight.
var ErrBusy = errors.New("another install operation is in progress")

// KindOf returns the kind of err, or zero when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
