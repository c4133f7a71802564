// Copyright (c) 2026 boardirc contributors
// released under the MIT license

package proto

import "errors"

// Parse Errors
var (
	// ErrMissingArgument indicates that a verb was missing one of its required arguments.
	ErrMissingArgument = errors.New("missing a required argument for command")
	// ErrNoCommandFound indicates that a line had content but no command token.
	ErrNoCommandFound = errors.New("no command found")
	// ErrEmptyString indicates that the line or its command section was empty.
	ErrEmptyString = errors.New("line is empty")
	// ErrPrefixOnly indicates that the line contained a prefix and nothing else.
	ErrPrefixOnly = errors.New("line contains only a prefix and no command")
)

// Framing Errors
var (
	// ErrLineTooLong indicates that the peer sent more than MaxLineLen bytes without
	// terminating the line. This is fatal to the connection.
	ErrLineTooLong = errors.New("line too long")
	// ErrEncoding indicates that a line was not valid UTF-8.
	ErrEncoding = errors.New("line is not valid UTF-8")
)

// IsFatal reports whether an error from reading or parsing a line must
// terminate the connection. Only errors confined to a single line (bad
// encoding or grammar) are survivable; LineTooLong and I/O errors are not.
func IsFatal(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrEncoding), errors.Is(err, ErrMissingArgument),
		errors.Is(err, ErrNoCommandFound), errors.Is(err, ErrEmptyString),
		errors.Is(err, ErrPrefixOnly):
		return false
	default:
		return true
	}
}
