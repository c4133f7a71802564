// Copyright (c) 2026 boardirc contributors
// released under the MIT license

package proto

import (
	"errors"
	"io"
	"unicode/utf8"

	"github.com/ergochat/irc-go/ircreader"
)

const (
	// MaxLineLen is the maximum number of content bytes in a single line,
	// not counting the terminator.
	MaxLineLen = 512

	// room for the content plus "\r\n"
	maxBufferedBytes = MaxLineLen + 2
	initialBufferLen = 256
)

// Framer turns a byte stream into discrete protocol lines. It keeps a
// per-connection receive buffer, so a line split across several reads is
// reassembled, and bytes read past a terminator are retained for the next call.
type Framer struct {
	reader ircreader.Reader
}

// NewFramer returns a Framer reading from conn.
func NewFramer(conn io.Reader) *Framer {
	var framer Framer
	framer.reader.Initialize(conn, initialBufferLen, maxBufferedBytes)
	return &framer
}

// ReadLine blocks until a complete line is available and returns it without its
// terminator (either "\n" or "\r\n"). It returns io.EOF once the peer has closed
// the stream; any unterminated trailing data is discarded at that point.
//
// ErrLineTooLong is returned when the peer exceeds MaxLineLen; the buffer is in an
// undefined state afterwards and the connection should be closed. ErrEncoding is
// returned for a line that isn't valid UTF-8; the line is consumed and the Framer
// can still be used.
func (f *Framer) ReadLine() (line string, err error) {
	raw, err := f.reader.ReadLine()
	if err != nil {
		if errors.Is(err, ircreader.ErrReadQ) {
			return "", ErrLineTooLong
		}
		return "", err
	}
	if len(raw) > MaxLineLen {
		return "", ErrLineTooLong
	}
	if !utf8.Valid(raw) {
		return "", ErrEncoding
	}
	return string(raw), nil
}
