// Copyright (c) 2026 boardirc contributors
// released under the MIT license

package irc

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime/pprof"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/okzk/sdnotify"

	"github.com/boardirc/boardirc/irc/flock"
	"github.com/boardirc/boardirc/irc/kv"
	"github.com/boardirc/boardirc/irc/logger"
	"github.com/boardirc/boardirc/irc/utils"
)

// Server is the boardirc server. It owns the registry that every session
// shares, and the listeners that create those sessions.
type Server struct {
	config   utils.ConfigStore[Config]
	ctime    time.Time
	logger   *logger.Manager
	registry *Registry
	metrics  *Metrics
	store    kv.Store
	flock    flock.Flocker

	listeners      map[string]IRCListener
	apiServer      *http.Server
	apiListener    net.Listener
	listenersMutex sync.Mutex // tier 1

	// nil when max-connections is 0
	connSemaphore *utils.Semaphore

	exitSignals     chan os.Signal
	rehashSignal    chan os.Signal
	tracebackSignal chan os.Signal
	rehashMutex     sync.Mutex // tier 4
	shutdownOnce    sync.Once
}

// NewServer returns a new boardirc server. Nothing listens until Start.
func NewServer(config *Config, logger *logger.Manager) (*Server, error) {
	server := &Server{
		ctime:           time.Now().UTC(),
		logger:          logger,
		listeners:       make(map[string]IRCListener),
		exitSignals:     make(chan os.Signal, len(utils.ServerExitSignals)),
		rehashSignal:    make(chan os.Signal, 1),
		tracebackSignal: make(chan os.Signal, 1),
	}

	if err := server.loadDatastore(config); err != nil {
		return nil, err
	}
	server.registry = NewRegistry(server.store)
	server.metrics = NewMetrics(server.registry)

	if config.Server.MaxConnections != 0 {
		server.connSemaphore = new(utils.Semaphore)
		server.connSemaphore.Initialize(config.Server.MaxConnections)
	}

	server.config.Set(config)
	return server, nil
}

// Config returns the current config. It must not be modified.
func (server *Server) Config() *Config {
	return server.config.Get()
}

// Registry returns the registry shared by all sessions.
func (server *Server) Registry() *Registry {
	return server.registry
}

func (server *Server) loadDatastore(config *Config) (err error) {
	path := config.Datastore.Path
	if path != kv.InMemory {
		server.flock, err = flock.TryAcquireFlock(path + ".lock")
		if err != nil {
			return fmt.Errorf("couldn't lock datastore %s: %w", path, err)
		}
	}

	server.logger.Info("server", "Opening datastore", path)
	server.store, err = kv.BuntdbOpen(path)
	if err != nil {
		if server.flock != nil {
			server.flock.Unlock()
		}
		return fmt.Errorf("couldn't open datastore %s: %w", path, err)
	}
	return nil
}

// Start opens the listeners and the admin API and tells systemd we're up.
func (server *Server) Start() (err error) {
	config := server.Config()
	if err = server.setupListeners(config); err != nil {
		return err
	}
	if config.API.Enabled {
		if err = server.startAPI(config.API.Listener); err != nil {
			server.stopListeners()
			return err
		}
	}
	server.logger.Info("server", fmt.Sprintf("%s is up and running on %s", Ver, config.Server.Name))
	if err := sdnotify.Ready(); err == nil {
		server.logger.Debug("server", "notified systemd of readiness")
	}
	return nil
}

// Run blocks until an exit signal arrives, then shuts the server down.
func (server *Server) Run() {
	// Notify with no signals would relay every signal
	notify := func(c chan os.Signal, signals []os.Signal) {
		if len(signals) != 0 {
			signal.Notify(c, signals...)
		}
	}
	notify(server.exitSignals, utils.ServerExitSignals)
	notify(server.rehashSignal, utils.ServerRehashSignals)
	notify(server.tracebackSignal, utils.ServerTracebackSignals)
	defer signal.Stop(server.exitSignals)
	defer signal.Stop(server.rehashSignal)
	defer signal.Stop(server.tracebackSignal)

	for {
		select {
		case sig := <-server.exitSignals:
			server.logger.Info("server", fmt.Sprintf("Shutting down due to %v", sig))
			server.Shutdown()
			return

		case <-server.rehashSignal:
			server.logger.Info("server", "Rehashing due to SIGHUP")
			go func() {
				if err := server.rehash(); err != nil {
					server.logger.Error("server", "Failed to rehash", err.Error())
				}
			}()

		case <-server.tracebackSignal:
			var buf strings.Builder
			pprof.Lookup("goroutine").WriteTo(&buf, 1)
			server.logger.Info("server", "goroutine dump follows", buf.String())
		}
	}
}

// Shutdown stops accepting connections and releases the datastore. Sessions
// already running end when their connections do.
func (server *Server) Shutdown() {
	server.shutdownOnce.Do(func() {
		sdnotify.Stopping()
		server.stopListeners()
		if err := server.store.Close(); err != nil {
			server.logger.Error("server", "couldn't close datastore", err.Error())
		}
		if server.flock != nil {
			server.flock.Unlock()
		}
		server.logger.Info("server", "Server shut down")
	})
}

// rehash reloads the config file. Logging, listeners and session settings
// take effect immediately; the datastore, admin API and max-connections
// keep their startup values.
func (server *Server) rehash() error {
	server.rehashMutex.Lock()
	defer server.rehashMutex.Unlock()

	oldConfig := server.Config()
	config, err := LoadConfig(oldConfig.Filename)
	if err != nil {
		return err
	}
	if config.Datastore.Path != oldConfig.Datastore.Path {
		server.logger.Warning("server", "datastore path can't be changed by a rehash; restart the server")
		config.Datastore.Path = oldConfig.Datastore.Path
	}
	if config.Server.MaxConnections != oldConfig.Server.MaxConnections {
		server.logger.Warning("server", "max-connections can't be changed by a rehash; restart the server")
	}
	if config.API != oldConfig.API {
		server.logger.Warning("server", "api settings can't be changed by a rehash; restart the server")
	}

	if err = server.logger.ApplyConfig(config.Logging); err != nil {
		return err
	}
	server.config.Set(config)
	if err = server.setupListeners(config); err != nil {
		return err
	}
	server.logger.Info("server", "Rehash completed successfully")
	return nil
}

// setupListeners brings the open listeners in line with config: new
// addresses are opened, missing ones are closed.
func (server *Server) setupListeners(config *Config) (err error) {
	server.listenersMutex.Lock()
	defer server.listenersMutex.Unlock()

	for addr, listener := range server.listeners {
		newConfig, stillConfigured := config.Server.Listeners[addr]
		if stillConfigured {
			if reloadErr := listener.Reload(newConfig); reloadErr != nil {
				server.logger.Error("listeners", "couldn't reload listener", addr, reloadErr.Error())
			}
		} else {
			listener.Stop()
			delete(server.listeners, addr)
			server.logger.Info("listeners", "stopped listening on", addr)
		}
	}

	var errs []error
	for _, addr := range sortedAddrs(config.Server.Listeners) {
		if _, exists := server.listeners[addr]; exists {
			continue
		}
		listenerConfig := config.Server.Listeners[addr]
		listener, listenErr := NewListener(server, addr, listenerConfig)
		if listenErr != nil {
			server.logger.Error("listeners", "couldn't listen on", addr, listenErr.Error())
			errs = append(errs, listenErr)
			continue
		}
		server.listeners[addr] = listener
		kind := "stream"
		if listenerConfig.WebSocket {
			kind = "websocket"
		}
		server.logger.Info("listeners", fmt.Sprintf("now listening on %s (%s)", listener.Addr(), kind))
	}

	if len(server.listeners) == 0 {
		return errors.Join(append(errs, ErrNoListenersDefined)...)
	}
	return errors.Join(errs...)
}

func (server *Server) stopListeners() {
	server.listenersMutex.Lock()
	defer server.listenersMutex.Unlock()

	for addr, listener := range server.listeners {
		listener.Stop()
		delete(server.listeners, addr)
	}
	if server.apiServer != nil {
		server.apiServer.Close()
		server.apiServer = nil
	}
}

// ListenerAddr returns the bound address of the listener configured as addr,
// or nil. It resolves ":0" style addresses.
func (server *Server) ListenerAddr(addr string) net.Addr {
	server.listenersMutex.Lock()
	defer server.listenersMutex.Unlock()

	if listener, ok := server.listeners[addr]; ok {
		return listener.Addr()
	}
	return nil
}

// RunSession runs a session on conn until it ends. It is called in its own
// goroutine for each accepted connection.
func (server *Server) RunSession(conn IRCConn) {
	server.metrics.connections.Inc()
	if server.connSemaphore != nil {
		if !server.connSemaphore.TryAcquire() {
			server.metrics.rejected.Inc()
			server.logger.Info("connect", "rejecting connection over max-connections", conn.RemoteAddr())
			conn.Write([]byte(tooManyConnsMsg))
			conn.Close()
			return
		}
		defer server.connSemaphore.Release()
	}

	server.metrics.sessionsActive.Inc()
	defer server.metrics.sessionsActive.Dec()

	server.logger.Info("connect", "session started", conn.RemoteAddr())
	err := newSession(server, conn).run()
	if err != nil {
		server.logger.Info("connect", "session ended", conn.RemoteAddr(), err.Error())
	} else {
		server.logger.Info("connect", "session ended", conn.RemoteAddr())
	}
}

func sortedAddrs(listeners map[string]ListenerConfig) (result []string) {
	for addr := range listeners {
		result = append(result, addr)
	}
	sort.Strings(result)
	return
}
