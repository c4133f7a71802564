// Copyright (c) 2026 boardirc contributors
// released under the MIT license

package irc

import (
	"errors"
	"net"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// IRCListener is an abstract wrapper for a listener (TCP port or unix domain socket).
// Server tracks these by listen address and can reload or stop them during rehash.
type IRCListener interface {
	Reload(config ListenerConfig) error
	Addr() net.Addr
	Stop() error
}

// NewListener creates a new listener according to the specifications in the config file
func NewListener(server *Server, addr string, config ListenerConfig) (result IRCListener, err error) {
	baseListener, err := createBaseListener(addr)
	if err != nil {
		return
	}

	if config.WebSocket {
		return NewWSListener(server, addr, baseListener), nil
	} else {
		return NewNetListener(server, addr, baseListener), nil
	}
}

func createBaseListener(addr string) (listener net.Listener, err error) {
	addr = strings.TrimPrefix(addr, "unix:")
	if strings.HasPrefix(addr, "/") {
		// a stale socket file from an unclean exit would make Listen fail
		os.Remove(addr)
		listener, err = net.Listen("unix", addr)
	} else {
		listener, err = net.Listen("tcp", addr)
	}
	return
}

// NetListener is an IRCListener for a regular stream socket (TCP or unix domain)
type NetListener struct {
	listener net.Listener
	server   *Server
	addr     string
}

func NewNetListener(server *Server, addr string, listener net.Listener) *NetListener {
	nl := &NetListener{
		server:   server,
		listener: listener,
		addr:     addr,
	}
	go nl.serve()
	return nl
}

func (nl *NetListener) Reload(config ListenerConfig) error {
	if config.WebSocket {
		return errCantReloadListener
	}
	return nil
}

func (nl *NetListener) Addr() net.Addr {
	return nl.listener.Addr()
}

func (nl *NetListener) Stop() error {
	return nl.listener.Close()
}

func (nl *NetListener) serve() {
	defer nl.server.HandlePanic()

	for {
		conn, err := nl.listener.Accept()

		if err == nil {
			// hand off the connection
			go nl.server.RunSession(NewIRCStreamConn(conn))
		} else if errors.Is(err, net.ErrClosed) {
			return
		} else {
			nl.server.logger.Error("listeners", "accept error", nl.addr, err.Error())
		}
	}
}

// WSListener is a listener for IRC-over-websockets (initially HTTP, then upgraded to a
// message-based protocol in which each text message carries one line)
type WSListener struct {
	listener   net.Listener
	httpServer *http.Server
	server     *Server
	addr       string
	stopped    atomic.Bool
}

func NewWSListener(server *Server, addr string, listener net.Listener) *WSListener {
	result := &WSListener{
		listener: listener,
		server:   server,
		addr:     addr,
	}
	result.httpServer = &http.Server{
		Handler:           http.HandlerFunc(result.handle),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		err := result.httpServer.Serve(listener)
		if !result.stopped.Load() && !errors.Is(err, http.ErrServerClosed) {
			server.logger.Error("listeners", "websocket listener failed", addr, err.Error())
		}
	}()
	return result
}

func (wl *WSListener) Reload(config ListenerConfig) error {
	if !config.WebSocket {
		return errCantReloadListener
	}
	return nil
}

func (wl *WSListener) Addr() net.Addr {
	return wl.listener.Addr()
}

func (wl *WSListener) Stop() error {
	wl.stopped.Store(true)
	return wl.httpServer.Close()
}

func (wl *WSListener) handle(w http.ResponseWriter, r *http.Request) {
	config := wl.server.Config()

	wsUpgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(config.Server.WebSockets.AllowedOrigins, r.Header.Get("Origin"))
		},
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		wl.server.logger.Info("listeners", "websocket upgrade error", wl.addr, err.Error())
		return
	}

	// a line plus its terminator; anything larger is a protocol violation
	conn.SetReadLimit(int64(maxLineBytes))

	go wl.server.RunSession(NewIRCWSConn(conn))
}

// originAllowed reports whether origin may open a websocket. An empty
// allowlist admits everyone; "*" in the list matches any origin.
func originAllowed(allowed []string, origin string) bool {
	if len(allowed) == 0 {
		return true
	}
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return false
	}
	for _, candidate := range allowed {
		if candidate == "*" || strings.EqualFold(candidate, origin) {
			return true
		}
	}
	return false
}
