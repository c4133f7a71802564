// Copyright (c) 2026 boardirc contributors
// released under the MIT license

package irc

import "errors"

// Session Errors
var (
	// ErrServerDisconnect means a write to the client failed.
	ErrServerDisconnect = errors.New("could not write to client")
	// ErrClientDisconnect means the client went away, or a read failed.
	ErrClientDisconnect = errors.New("client disconnected")
	// ErrCommandParse wraps a proto parse error for a single line.
	ErrCommandParse = errors.New("could not parse command")
	ErrMissingUser  = errors.New("first command was not USER")
	ErrDoSWarning   = errors.New("second command was not PONG")
	errSessionPanic = errors.New("session panicked")
)

// Registry Errors
var (
	ErrUnknownChannel = errors.New("no such channel")
	ErrUnknownUser    = errors.New("no such user")
	errInvalidNick    = errors.New("invalid nickname")
)

// Config Errors
var (
	ErrServerNameMissing     = errors.New("Server name missing")
	ErrServerNameNotHostname = errors.New("Server name must match the format of a hostname")
	ErrNoListenersDefined    = errors.New("Server listening addresses missing")
	ErrAPIListenerMissing    = errors.New("API is enabled but api.listener is empty")
	errCantReloadListener    = errors.New("can't switch a listener between stream and websocket")
)
