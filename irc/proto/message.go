// Copyright (c) 2026 boardirc contributors
// released under the MIT license

package proto

import (
	"fmt"
	"strings"
)

// Message is a single parsed protocol line. It is immutable once constructed.
type Message struct {
	prefix      string
	hasPrefix   bool
	command     Command
	trailing    string
	hasTrailing bool
	raw         string
}

// ParseMessage parses one framed line (without its terminator).
//
// A leading ':' introduces a prefix, which runs up to the first space. The
// trailing parameter begins at the first occurrence of " :" after the prefix and
// runs verbatim to the end of the line; a ':' anywhere else (for example inside a
// hostname) is ordinary argument text.
func ParseMessage(line string) (msg Message, err error) {
	if strings.TrimSpace(line) == "" {
		return msg, ErrEmptyString
	}

	rest := line
	if line[0] == ':' {
		end := strings.IndexByte(line, ' ')
		if end == -1 {
			return msg, fmt.Errorf("%w: %q", ErrPrefixOnly, line)
		}
		msg.prefix, msg.hasPrefix = line[1:end], true
		rest = strings.TrimLeft(line[end+1:], " ")
		if rest == "" {
			return msg, fmt.Errorf("%w: %q", ErrPrefixOnly, line)
		}
	}

	section := rest
	if idx := strings.Index(rest, " :"); idx != -1 {
		section = rest[:idx]
		msg.trailing, msg.hasTrailing = rest[idx+2:], true
	}
	if section == "" {
		return msg, ErrEmptyString
	}
	if strings.TrimSpace(section) == "" {
		return msg, fmt.Errorf("%w: %q", ErrNoCommandFound, line)
	}

	fields := strings.Fields(section)
	p := params{args: fields[1:], trailing: msg.trailing, hasTrailing: msg.hasTrailing}
	msg.command, err = parseCommand(fields[0], &p, rest)
	if err != nil {
		return Message{}, err
	}

	if _, isRaw := msg.command.(Raw); isRaw {
		msg.raw = rest
	} else {
		verbStart := strings.Index(rest, fields[0])
		msg.raw = strings.TrimLeft(rest[verbStart+len(fields[0]):], " ")
	}
	return msg, nil
}

// Prefix returns the message prefix (without the leading ':'), if one was present.
func (msg *Message) Prefix() (prefix string, present bool) {
	return msg.prefix, msg.hasPrefix
}

// Command returns the parsed command variant.
func (msg *Message) Command() Command {
	return msg.command
}

// Trailing returns the trailing parameter (the text after " :"), if present.
func (msg *Message) Trailing() (trailing string, present bool) {
	return msg.trailing, msg.hasTrailing
}

// Raw returns the unmodified text following the command token. For free text
// (the Raw variant) it is the whole line after the prefix.
func (msg *Message) Raw() string {
	return msg.raw
}
