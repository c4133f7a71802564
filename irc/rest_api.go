// Copyright (c) 2026 boardirc contributors
// released under the MIT license

// read-only views of the registry, plus rehash and prometheus metrics

package irc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

type restStatusResp struct {
	Version  string    `json:"version"`
	Name     string    `json:"name"`
	Started  time.Time `json:"started"`
	Channels int       `json:"channels"`
	Users    int       `json:"users"`
}

type restBoardResp struct {
	Channel string   `json:"channel"`
	Lines   []string `json:"lines"`
}

type restGenericResp struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type restAPI struct {
	server *Server
}

func newRestAPIHandler(server *Server) http.Handler {
	api := &restAPI{server: server}

	r := mux.NewRouter()
	r.Use(server.recoverMiddleware, server.metrics.Middleware())
	r.Handle("/metrics", server.metrics.Handler()).Methods(http.MethodGet)

	rs := r.PathPrefix("/api/v1").Subrouter()
	rs.HandleFunc("/status", api.handleStatus).Methods(http.MethodGet)
	rs.HandleFunc("/channels", api.handleChannels).Methods(http.MethodGet)
	rs.HandleFunc("/channels/{name}", api.handleChannel).Methods(http.MethodGet)
	rs.HandleFunc("/channels/{name}/board", api.handleBoard).Methods(http.MethodGet)
	rs.HandleFunc("/rehash", api.handleRehash).Methods(http.MethodPost)
	return r
}

func (server *Server) startAPI(addr string) (err error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("couldn't start api on %s: %w", addr, err)
	}

	server.listenersMutex.Lock()
	server.apiListener = listener
	server.apiServer = &http.Server{
		Handler:           newRestAPIHandler(server),
		ReadHeaderTimeout: 10 * time.Second,
	}
	apiServer := server.apiServer
	server.listenersMutex.Unlock()

	server.logger.Info("api", "API started on", listener.Addr().String())
	go func() {
		if err := apiServer.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			server.logger.Error("api", "API server failed", err.Error())
		}
	}()
	return nil
}

// APIAddr returns the bound address of the admin API, or nil if it's off.
func (server *Server) APIAddr() net.Addr {
	server.listenersMutex.Lock()
	defer server.listenersMutex.Unlock()

	if server.apiListener == nil {
		return nil
	}
	return server.apiListener.Addr()
}

func (api *restAPI) writeJSONResponse(response any, status int, w http.ResponseWriter, r *http.Request) {
	j, err := json.Marshal(response)
	if err == nil {
		j = append(j, '\n') // less annoying in curl output
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write(j)
	} else {
		api.server.logger.Error("api", "failed to serialize API response", r.URL.String(), err.Error())
		http.Error(w, fmt.Sprintf("failed to serialize json response: %v", err), http.StatusInternalServerError)
	}
}

func (api *restAPI) writeError(err error, status int, w http.ResponseWriter, r *http.Request) {
	api.writeJSONResponse(restGenericResp{Error: err.Error()}, status, w, r)
}

func (api *restAPI) handleStatus(w http.ResponseWriter, r *http.Request) {
	channels, users := api.server.registry.Counts()
	api.writeJSONResponse(restStatusResp{
		Version:  Ver,
		Name:     api.server.Config().Server.Name,
		Started:  api.server.ctime,
		Channels: channels,
		Users:    users,
	}, http.StatusOK, w, r)
}

func (api *restAPI) handleChannels(w http.ResponseWriter, r *http.Request) {
	api.writeJSONResponse(api.server.registry.Channels(), http.StatusOK, w, r)
}

func (api *restAPI) handleChannel(w http.ResponseWriter, r *http.Request) {
	info, err := api.server.registry.Channel(mux.Vars(r)["name"])
	if err != nil {
		api.writeError(err, http.StatusNotFound, w, r)
		return
	}
	api.writeJSONResponse(info, http.StatusOK, w, r)
}

func (api *restAPI) handleBoard(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	lines, err := api.server.registry.ReadBoard(name)
	if errors.Is(err, ErrUnknownChannel) {
		api.writeError(err, http.StatusNotFound, w, r)
		return
	} else if err != nil {
		api.writeError(err, http.StatusInternalServerError, w, r)
		return
	}
	api.writeJSONResponse(restBoardResp{Channel: name, Lines: lines}, http.StatusOK, w, r)
}

func (api *restAPI) handleRehash(w http.ResponseWriter, r *http.Request) {
	var response restGenericResp
	if err := api.server.rehash(); err == nil {
		response.Success = true
	} else {
		response.Error = err.Error()
	}
	api.writeJSONResponse(response, http.StatusOK, w, r)
}
