package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rotopress/rotopress/auth"
	"github.com/rotopress/rotopress/model"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// redirectBase returns the public base URL for the OAuth redirect: the
// configured external URL when set, otherwise derived from the request.
func (s *Server) redirectBase(r *http.Request) string {
	if s.cfg.ExternalURL != "" {
		return strings.TrimRight(s.cfg.ExternalURL, "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, r.Host)
}

// handleAuthStart kicks off the authorization-code flow for an account. The
// state token is tracked server-side until the provider calls back.
func (s *Server) handleAuthStart(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.account(w, r)
	if !ok {
		return
	}

	conf, err := s.auth.OAuthConfig(&acct, s.redirectBase(r)+"/oauth2callback")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	stateToken := uuid.NewString()
	s.oauthMu.Lock()
	s.oauthStates[stateToken] = acct.StatePrefix
	s.oauthMu.Unlock()

	authURL := conf.AuthCodeURL(stateToken,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
	http.Redirect(w, r, authURL, http.StatusFound)
}

// handleOAuthCallback completes the flow: validates the state token,
// exchanges the code and hands the credential to the store, writing the
// normalized token path back to the account record.
func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	stateToken := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if stateToken == "" || code == "" {
		writeError(w, http.StatusBadRequest, "missing state or code")
		return
	}

	s.oauthMu.Lock()
	prefix, ok := s.oauthStates[stateToken]
	delete(s.oauthStates, stateToken)
	s.oauthMu.Unlock()
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown oauth state")
		return
	}

	acct, err := s.accounts.Get(prefix)
	if err != nil {
		writeError(w, http.StatusBadRequest, "account no longer exists")
		return
	}

	conf, err := s.auth.OAuthConfig(&acct, s.redirectBase(r)+"/oauth2callback")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	tok, err := conf.Exchange(r.Context(), code)
	if err != nil {
		writeError(w, http.StatusBadGateway, fmt.Sprintf("token exchange failed: %v", err))
		return
	}

	cred := auth.CredentialFromToken(conf, tok)
	tokenPath, err := s.auth.Store(&acct, cred)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := s.accounts.SetTokenFile(acct.StatePrefix, tokenPath); err != nil {
		log.Warn().Err(err).Str("account", acct.StatePrefix).Msg("Failed to write back normalized token path")
	}

	log.Info().Str("account", acct.StatePrefix).Msg("Account authorized")
	writeJSON(w, http.StatusOK, map[string]string{"status": "authorized", "account": acct.StatePrefix})
}

// normalizeTokenPath returns the canonical token file path for an account
// being saved.
func (s *Server) normalizeTokenPath(acct *model.Account) (string, error) {
	return auth.NormalizeTokenPath(acct.TokenFile, acct.StatePrefix)
}
