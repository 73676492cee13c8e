package squashfs

import (
	"fmt"
	"io"
)

// Kind classifies an Error into one of the channels described by this
// library's error handling design: a fixed set of kinds, each triggered by
// a specific class of problem, with no internal retry.
type Kind string

const (
	// KindInvalidData covers bad magic, oversize metadata block headers,
	// decompression failures, and malformed directory or inode records.
	KindInvalidData Kind = "invalid_data"
	// KindNotFound covers a missing path component or an out-of-range
	// uid/gid index.
	KindNotFound Kind = "not_found"
	// KindInvalidInput covers path components with no meaning in a
	// SquashFS image (e.g. a drive prefix) and seek arithmetic overflow.
	KindInvalidInput Kind = "invalid_input"
	// KindUnsupported covers compression identifiers outside the
	// supported set and reading an inode as the wrong kind.
	KindUnsupported Kind = "unsupported"
	// KindUnexpectedEOF covers a stream ending before a required record
	// completes.
	KindUnexpectedEOF Kind = "unexpected_eof"
	// KindIO is a transparent pass-through of a backing-store I/O failure.
	KindIO Kind = "io"
)

// Error is the one error type this library returns from public operations.
// It carries a Kind plus a message and optionally wraps an underlying
// error, so errors.Is/errors.As keep working against both the Kind
// sentinels below and whatever the backing store returned.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("squashfs: %s: %s: %s", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("squashfs: %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is one of the package-level Kind sentinels
// below and matches this error's Kind, so callers can write
// errors.Is(err, squashfs.ErrNotFound) without caring about the message.
func (e *Error) Is(target error) bool {
	k, ok := target.(*Error)
	if !ok || k.Kind == "" {
		return false
	}
	return k.Kind == e.Kind
}

func newErr(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

// Package-level sentinels usable with errors.Is. Each carries only a Kind;
// the message and wrapped cause of the actual error returned to a caller
// carry the specifics.
var (
	ErrInvalidData   = &Error{Kind: KindInvalidData, Msg: "invalid data"}
	ErrNotFound      = &Error{Kind: KindNotFound, Msg: "not found"}
	ErrInvalidInput  = &Error{Kind: KindInvalidInput, Msg: "invalid input"}
	ErrUnsupported   = &Error{Kind: KindUnsupported, Msg: "unsupported"}
	ErrUnexpectedEOF = &Error{Kind: KindUnexpectedEOF, Msg: "unexpected eof"}
	ErrIO            = &Error{Kind: KindIO, Msg: "io error"}

	// ErrNotDirectory is returned when a directory operation is attempted
	// against a non-directory inode.
	ErrNotDirectory = newErr(KindUnsupported, "not a directory", nil)
	// ErrNotRegular is returned when a file operation is attempted
	// against a non-regular-file inode.
	ErrNotRegular = newErr(KindUnsupported, "not a regular file", nil)
	// ErrTooManySymlinks is returned when symlink resolution exceeds the
	// bounded hop count (see sqpath and Archive.FindInode).
	ErrTooManySymlinks = newErr(KindInvalidData, "too many levels of symbolic links", nil)
)

// wrapIO classifies an I/O error from the backing store per the
// propagation policy in the error handling design: unexpected EOF keeps
// its own kind, everything else becomes KindIO.
func wrapIO(msg string, err error) error {
	if err == nil {
		return nil
	}
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		return newErr(KindUnexpectedEOF, msg, err)
	}
	return newErr(KindIO, msg, err)
}
