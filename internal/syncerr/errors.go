// Package syncerr defines the error domain shared by every asset sync operation.
//
// Each failure carries a numeric Code from a fixed taxonomy, the operation that
// failed, the resource key it failed for and a human-readable message. Callers
// use CodeOf or errors.Is against the sentinel errors to decide retry policy.
package syncerr

import (
	"errors"
	"fmt"
)

// Domain is the name of the error domain reported alongside every code
const Domain = "AssetSyncError"

// HTTPHeader carries the code name of a failed API request, so middleware can label it without reading the body
const HTTPHeader = "X-Assetsync-Error-Code"

// Code identifies a class of failure within the Domain
type Code int

const (
	// CodeUnknown is used for errors that did not originate in this domain
	CodeUnknown Code = 0

	// CodeValidation means a locale or type cannot form a valid ref name, or a path is malformed
	CodeValidation Code = 1

	// CodeNetwork means the remote was unreachable or the transport failed
	CodeNetwork Code = 2

	// CodeRefNotFound means the branch for a resource does not exist on the remote
	CodeRefNotFound Code = 3

	// CodeCancelled means the caller aborted the transfer from its progress callback
	CodeCancelled Code = 4

	// CodeIntegrity means a hash mismatch or an unreadable file
	CodeIntegrity Code = 5

	// CodeStorage means a local filesystem failure
	CodeStorage Code = 6

	// CodeExists means a working copy already exists for the resource
	CodeExists Code = 7

	// CodeNotFound means a working copy or a file inside it does not exist
	CodeNotFound Code = 8

	// CodeNotStarted means the engine has not been opened or was already closed
	CodeNotStarted Code = 9

	// CodeBusy means another process holds the working copy lock
	CodeBusy Code = 10
)

var codeNames = map[Code]string{
	CodeUnknown:     "unknown",
	CodeValidation:  "validation",
	CodeNetwork:     "network",
	CodeRefNotFound: "ref-not-found",
	CodeCancelled:   "cancelled",
	CodeIntegrity:   "integrity",
	CodeStorage:     "storage",
	CodeExists:      "exists",
	CodeNotFound:    "not-found",
	CodeNotStarted:  "not-started",
	CodeBusy:        "busy",
}

// String returns the short name of the code
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// Retryable reports whether a caller may reasonably retry an operation that failed with this code
func (c Code) Retryable() bool {
	return c == CodeNetwork || c == CodeBusy
}

// Sentinel errors, one per code, for use with errors.Is
var (
	ErrValidation  = &Error{Code: CodeValidation}
	ErrNetwork     = &Error{Code: CodeNetwork}
	ErrRefNotFound = &Error{Code: CodeRefNotFound}
	ErrCancelled   = &Error{Code: CodeCancelled}
	ErrIntegrity   = &Error{Code: CodeIntegrity}
	ErrStorage     = &Error{Code: CodeStorage}
	ErrExists      = &Error{Code: CodeExists}
	ErrNotFound    = &Error{Code: CodeNotFound}
	ErrNotStarted  = &Error{Code: CodeNotStarted}
	ErrBusy        = &Error{Code: CodeBusy}
)

// Error is a structured error in the asset sync domain
type Error struct {
	// Code classifies the failure
	Code Code

	// Op is the operation that failed (download, update, check, hash, ...)
	Op string

	// Key is the resource key rendered as locale/type, empty when not applicable
	Key string

	// Message is a human-readable description
	Message string

	// Err is the underlying cause
	Err error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code.String()
	}
	prefix := ""
	switch {
	case e.Op != "" && e.Key != "":
		prefix = fmt.Sprintf("%s %s: ", e.Op, e.Key)
	case e.Op != "":
		prefix = e.Op + ": "
	}
	if e.Err != nil {
		return fmt.Sprintf("%s%s: %v", prefix, msg, e.Err)
	}
	return prefix + msg
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same code, which makes the sentinels work with errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Op == "" && t.Message == "" && t.Err == nil
}

// New creates an error with the given code and message
func New(code Code, op, key, message string) *Error {
	return &Error{Code: code, Op: op, Key: key, Message: message}
}

// Wrap creates an error with the given code wrapping err.
// If err already belongs to the domain, its code is kept and only missing context is filled in.
func Wrap(code Code, op, key string, err error, message string) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) && existing.Code != CodeUnknown {
		if existing.Op == "" && existing.Key == "" {
			return &Error{Code: existing.Code, Op: op, Key: key, Message: existing.Message, Err: existing.Err}
		}
		return err
	}
	return &Error{Code: code, Op: op, Key: key, Message: message, Err: err}
}

// CodeOf returns the code of the first domain error in err's chain, or CodeUnknown
func CodeOf(err error) Code {
	if err == nil {
		return CodeUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}
