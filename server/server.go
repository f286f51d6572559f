// Package server exposes the rotopress control surface as a JSON HTTP API:
// the per-account run/peek/scan/force/used/status operations, account CRUD
// and the OAuth authorization handoff.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rotopress/rotopress/accounts"
	"github.com/rotopress/rotopress/auth"
	"github.com/rotopress/rotopress/common"
	"github.com/rotopress/rotopress/model"
	"github.com/rotopress/rotopress/runner"
	"github.com/rotopress/rotopress/selection"
	"github.com/rotopress/rotopress/state"
	"github.com/rotopress/rotopress/youtube"
	"github.com/rs/zerolog/log"
)

// Server wires the HTTP handlers to the engine components.
type Server struct {
	cfg       *common.AppConfig
	accounts  *accounts.Store
	store     *state.Store
	selection *selection.Engine
	runner    *runner.Orchestrator
	auth      *auth.Manager
	publisher youtube.Publisher

	// In-flight OAuth authorization states: state token -> account prefix.
	oauthMu     sync.Mutex
	oauthStates map[string]string
}

// New creates the control-surface server.
func New(
	cfg *common.AppConfig,
	acctStore *accounts.Store,
	stateStore *state.Store,
	sel *selection.Engine,
	orch *runner.Orchestrator,
	authManager *auth.Manager,
	publisher youtube.Publisher,
) *Server {
	return &Server{
		cfg:         cfg,
		accounts:    acctStore,
		store:       stateStore,
		selection:   sel,
		runner:      orch,
		auth:        authManager,
		publisher:   publisher,
		oauthStates: make(map[string]string),
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/status", s.handleAllStatus)

	mux.HandleFunc("GET /api/accounts", s.handleListAccounts)
	mux.HandleFunc("POST /api/accounts", s.handleUpsertAccount)
	mux.HandleFunc("GET /api/accounts/{prefix}", s.handleGetAccount)
	mux.HandleFunc("PUT /api/accounts/{prefix}", s.handleUpsertAccount)
	mux.HandleFunc("DELETE /api/accounts/{prefix}", s.handleDeleteAccount)

	mux.HandleFunc("POST /api/accounts/{prefix}/run", s.handleRun)
	mux.HandleFunc("GET /api/accounts/{prefix}/peek", s.handlePeek)
	mux.HandleFunc("GET /api/accounts/{prefix}/scan", s.handleScan)
	mux.HandleFunc("POST /api/accounts/{prefix}/force-next", s.handleForceNext)
	mux.HandleFunc("GET /api/accounts/{prefix}/used", s.handleListUsed)
	mux.HandleFunc("DELETE /api/accounts/{prefix}/used", s.handleClearUsed)
	mux.HandleFunc("GET /api/accounts/{prefix}/status", s.handleStatus)

	mux.HandleFunc("GET /auth/{prefix}/start", s.handleAuthStart)
	mux.HandleFunc("GET /oauth2callback", s.handleOAuthCallback)

	return mux
}

// ListenAndServe runs the HTTP server until the context is cancelled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.ListenAddr).Msg("Control surface listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info().Msg("Shutting down control surface")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// account resolves the {prefix} path value to an account record, writing a
// 404 on a miss.
func (s *Server) account(w http.ResponseWriter, r *http.Request) (model.Account, bool) {
	prefix := r.PathValue("prefix")
	acct, err := s.accounts.Get(prefix)
	if errors.Is(err, accounts.ErrNotFound) {
		writeError(w, http.StatusNotFound, "unknown account")
		return model.Account{}, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return model.Account{}, false
	}
	return acct, true
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
