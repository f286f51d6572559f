package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rotopress/rotopress/model"
	"github.com/rotopress/rotopress/runner"
	"github.com/rs/zerolog/log"
)

// accountView is the account record as listed by the API, decorated with run
// status and authorization state.
type accountView struct {
	model.Account
	Status       model.RunStatus `json:"status"`
	Authed       bool            `json:"authed"`
	ChannelTitle string          `json:"channel_title,omitempty"`
	Running      bool            `json:"running"`
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accts, err := s.accounts.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	views := make([]accountView, 0, len(accts))
	for _, acct := range accts {
		view := accountView{Account: acct, Running: s.runner.Guard().Running(acct.StatePrefix)}
		view.Status, _ = s.store.LoadStatus(acct.StatePrefix)
		view.Authed = s.auth.Authorized(r.Context(), &acct)
		if view.Authed {
			if title, err := s.publisher.ChannelTitle(r.Context(), &acct); err == nil {
				view.ChannelTitle = title
			} else {
				log.Debug().Err(err).Str("account", acct.StatePrefix).Msg("Channel title lookup failed")
			}
		}
		views = append(views, view)
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.account(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (s *Server) handleUpsertAccount(w http.ResponseWriter, r *http.Request) {
	var acct model.Account
	if err := json.NewDecoder(r.Body).Decode(&acct); err != nil {
		writeError(w, http.StatusBadRequest, "invalid account payload")
		return
	}

	if prefix := r.PathValue("prefix"); prefix != "" {
		acct.StatePrefix = prefix
	}

	// Normalize the token path on save so every later read sees a file path.
	if acct.StatePrefix != "" {
		if normalized, err := s.normalizeTokenPath(&acct); err == nil {
			acct.TokenFile = normalized
		} else {
			log.Warn().Err(err).Str("account", acct.StatePrefix).Msg("Token path normalization failed on save")
		}
	}

	if err := s.accounts.Upsert(acct); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.account(w, r)
	if !ok {
		return
	}
	if err := s.accounts.Delete(acct.StatePrefix); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": acct.StatePrefix})
}

func (s *Server) handleAllStatus(w http.ResponseWriter, _ *http.Request) {
	accts, err := s.accounts.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	statuses := make(map[string]model.RunStatus, len(accts))
	for _, acct := range accts {
		statuses[acct.StatePrefix], _ = s.store.LoadStatus(acct.StatePrefix)
	}
	writeJSON(w, http.StatusOK, statuses)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.account(w, r)
	if !ok {
		return
	}
	status, err := s.store.LoadStatus(acct.StatePrefix)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.account(w, r)
	if !ok {
		return
	}

	err := s.runner.Start(r.Context(), acct)
	switch {
	case errors.Is(err, runner.ErrAlreadyRunning):
		writeError(w, http.StatusConflict, "run already in progress")
	case errors.Is(err, runner.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "account is not authorized yet")
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
	}
}

func (s *Server) handlePeek(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.account(w, r)
	if !ok {
		return
	}

	sel, found, err := s.selection.Peek(&acct)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		writeJSON(w, http.StatusOK, map[string]interface{}{"found": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"found": true,
		"name":  sel.Name,
		"url":   sel.URL,
	})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.account(w, r)
	if !ok {
		return
	}

	limit := s.cfg.ScanLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	includeUsed := r.URL.Query().Get("include_used") == "true"

	entries, err := s.selection.Scan(&acct, limit, includeUsed)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []model.ScanEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleForceNext(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.account(w, r)
	if !ok {
		return
	}

	var payload struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	if err := s.store.SetForce(acct.StatePrefix, payload.Name); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"name": payload.Name})
}

func (s *Server) handleListUsed(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.account(w, r)
	if !ok {
		return
	}

	used, err := s.store.LoadUsed(acct.StatePrefix)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if used == nil {
		used = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"used": used})
}

func (s *Server) handleClearUsed(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.account(w, r)
	if !ok {
		return
	}

	if err := s.store.ClearUsed(acct.StatePrefix); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"used": {}})
}
