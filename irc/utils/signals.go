//go:build !(plan9 || windows)

// Copyright (c) 2026 boardirc contributors
// released under the MIT license

package utils

import (
	"os"
	"syscall"
)

var (
	// ServerExitSignals are the signals the server will exit on.
	ServerExitSignals = []os.Signal{
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	}

	// ServerRehashSignals make the server reload its config file.
	ServerRehashSignals = []os.Signal{
		syscall.SIGHUP,
	}

	// ServerTracebackSignals make the server dump its goroutines to the log.
	ServerTracebackSignals = []os.Signal{
		syscall.SIGUSR1,
	}
)
