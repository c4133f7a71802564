//go:build plan9

// Copyright (c) 2026 boardirc contributors
// released under the MIT license

package utils

import (
	"os"
	"syscall"
)

var (
	// ServerExitSignals are the signals the server will exit on.
	// (no SIGQUIT on plan9)
	ServerExitSignals = []os.Signal{
		syscall.SIGINT,
		syscall.SIGTERM,
	}

	ServerRehashSignals    []os.Signal
	ServerTracebackSignals []os.Signal
)
