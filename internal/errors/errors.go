package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies an error by what the caller can do about it.
type Kind string

const (
	KindNoCommits       Kind = "NO_COMMITS"
	KindVersionNotFound Kind = "VERSION_NOT_FOUND"
	KindUnchanged       Kind = "UNCHANGED_DOCUMENT"
	KindCorrupted       Kind = "REPOSITORY_CORRUPTED"
	KindBusy            Kind = "REPOSITORY_BUSY"
	KindToolUnavailable Kind = "TOOL_UNAVAILABLE"
	KindStorageWrite    Kind = "STORAGE_WRITE_FAILED"
	KindValidation      Kind = "VALIDATION"
)

type Error struct {
	Kind     Kind
	Op       string
	Version  string
	Filename string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or "" when err carries no Kind.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}

func NoCommits(op string) *Error {
	return &Error{Kind: KindNoCommits, Op: op, Message: "no commits exist"}
}

func VersionNotFound(op, version string) *Error {
	return &Error{
		Kind:    KindVersionNotFound,
		Op:      op,
		Version: version,
		Message: fmt.Sprintf("version %s not found", version),
	}
}

func Unchanged(filename string) *Error {
	return &Error{
		Kind:     KindUnchanged,
		Op:       "commit",
		Filename: filename,
		Message:  fmt.Sprintf("%s has not changed since the last commit", filename),
	}
}

func Busy(op string) *Error {
	return &Error{Kind: KindBusy, Op: op, Message: "repository is locked by another process"}
}

func ToolUnavailable(tool string, err error) *Error {
	return &Error{
		Kind:    KindToolUnavailable,
		Message: fmt.Sprintf("diff tool %q unavailable", tool),
		Err:     err,
	}
}

func StorageWrite(op string, err error) *Error {
	return &Error{Kind: KindStorageWrite, Op: op, Err: err}
}

func Corrupted(op string, err error) *Error {
	return &Error{Kind: KindCorrupted, Op: op, Err: err}
}

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}
