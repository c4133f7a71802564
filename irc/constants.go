// Copyright (c) 2026 boardirc contributors
// released under the MIT license

package irc

const (
	// DefaultChannel is joined by every session once its handshake completes.
	DefaultChannel = "Welcome"

	// pingToken is the fixed handshake challenge
	pingToken = "12345"

	rejectMissingUser = "392 the first command should be USER \r\n"
	rejectMissingPong = "392 the second command should be PONG \r\n"
	tooManyConnsMsg   = "ERROR :Too many connections\r\n"
)

const (
	// # numeric codes
	// ## reply codes
	RPL_CHANNELMODEIS = "324"
	RPL_LIST          = "322"
	RPL_LISTEND       = "323"
	RPL_NOTOPIC       = "331"
	RPL_TOPIC         = "332"
	RPL_NAMREPLY      = "353"
	RPL_ENDOFNAMES    = "366"
	// ## error codes
	ERR_NOSUCHCHANNEL    = "403"
	ERR_ERRONEUSNICKNAME = "432"
	// # message codes
	RPL_MODE    = "MODE"
	RPL_NICK    = "NICK"
	RPL_PING    = "PING"
	RPL_PONG    = "PONG"
	RPL_PRIVMSG = "PRIVMSG"
	RPL_NOTICE  = "NOTICE"
)
