// Copyright (c) 2026 boardirc contributors
// released under the MIT license

package irc

import (
	"strings"

	"github.com/ergochat/irc-go/ircmsg"
	"golang.org/x/text/secure/precis"
)

// UserID identifies a registered user. It is assigned once at registration
// and never derived from the user's (mutable) fields.
type UserID string

// User is a registered user.
type User struct {
	Username string
	Hostname string
	Realname string
	Server   string
	// Nick is empty until the user sets one.
	Nick string
}

// DisplayName is the nickname if one is set, otherwise the username.
func (user *User) DisplayName() string {
	if user.Nick != "" {
		return user.Nick
	}
	return user.Username
}

// Sig returns the user's nick!user@host source.
func (user *User) Sig() string {
	nuh := ircmsg.NUH{Name: user.DisplayName(), User: user.Username, Host: user.Hostname}
	return nuh.Canonical()
}

// validateNick checks a nickname against the PRECIS nickname profile, plus
// the characters that would make it ambiguous on the wire.
func validateNick(nick string) error {
	if nick == "" || strings.ContainsAny(nick, " ,*?!@") || strings.ContainsAny(nick[:1], ":#&+$") {
		return errInvalidNick
	}
	if _, err := precis.Nickname.String(nick); err != nil {
		return errInvalidNick
	}
	return nil
}
