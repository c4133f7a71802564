// Copyright (c) 2026 boardirc contributors
// released under the MIT license

package irc

import (
	"fmt"
	"net/http"
	"runtime/debug"
)

// HandlePanic is a general-purpose panic handler for ad-hoc goroutines.
// Because of the semantics of `recover`, it must be called directly
// from the routine on whose call stack the panic would occur, with `defer`,
// e.g. `defer server.HandlePanic()`
func (server *Server) HandlePanic() {
	if r := recover(); r != nil {
		server.logger.Error("internal", fmt.Sprintf("Panic encountered: %v\n%s", r, debug.Stack()))
	}
}

// recoverMiddleware turns a panicking API handler into a logged 500.
func (server *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				server.logger.Error("api", fmt.Sprintf("Panic in %s: %v\n%s", r.URL.Path, rec, debug.Stack()))
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
		}()
		server.logger.Debug("api", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
