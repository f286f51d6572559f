package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotopress/rotopress/model"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Manager loads, validates and keeps fresh per-account credentials.
type Manager struct{}

// NewManager creates a credential manager.
func NewManager() *Manager {
	return &Manager{}
}

// NormalizeTokenPath rewrites a configured token path that is empty, the bare
// "tokens" directory name, or an existing directory into the canonical
// per-account file path, creating parent directories. Plain file paths pass
// through unchanged.
func NormalizeTokenPath(tokenPath, prefix string) (string, error) {
	tokenPath = strings.TrimSpace(tokenPath)

	cleaned := strings.TrimRight(strings.ReplaceAll(tokenPath, "\\", "/"), "/")
	if cleaned == "" || strings.EqualFold(cleaned, "tokens") {
		tokenPath = filepath.Join("tokens", prefix+".json")
	} else {
		tokenPath = cleaned
		if info, err := os.Stat(tokenPath); err == nil && info.IsDir() {
			tokenPath = filepath.Join(tokenPath, prefix+".json")
		}
	}

	parent := filepath.Dir(tokenPath)
	if parent == "" {
		parent = "."
	}
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", fmt.Errorf("failed to create token directory: %w", err)
	}
	return tokenPath, nil
}

// Load reads the account's persisted credential. Absent or structurally
// invalid token files yield nil without an error; this mirrors "no credential
// yet" rather than a failure.
func (m *Manager) Load(acct *model.Account) *Credential {
	path, err := NormalizeTokenPath(acct.TokenFile, acct.StatePrefix)
	if err != nil {
		log.Warn().Err(err).Str("account", acct.StatePrefix).Msg("Failed to normalize token path")
		return nil
	}

	cred, err := readCredential(path)
	if err != nil {
		log.Debug().Err(err).Str("account", acct.StatePrefix).Msg("No usable credential")
		return nil
	}
	return cred
}

// Credentials returns the account's credential, silently refreshed when
// expired and refreshable. A failed refresh is swallowed and the stale
// credential is returned; downstream publishing fails naturally in that case.
func (m *Manager) Credentials(ctx context.Context, acct *model.Account) *Credential {
	cred := m.Load(acct)
	if cred == nil {
		return nil
	}

	if cred.Expired() && cred.RefreshToken != "" {
		if err := m.refresh(ctx, acct, cred); err != nil {
			log.Warn().Err(err).Str("account", acct.StatePrefix).Msg("Credential refresh failed, returning stale credential")
		}
	}
	return cred
}

// refresh performs a silent token refresh against the credential's token
// endpoint and persists the updated token and expiry in place.
func (m *Manager) refresh(ctx context.Context, acct *model.Account, cred *Credential) error {
	src := cred.oauthConfig().TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken})

	tok, err := src.Token()
	if err != nil {
		return fmt.Errorf("token refresh failed: %w", err)
	}

	cred.Token = tok.AccessToken
	if tok.RefreshToken != "" {
		cred.RefreshToken = tok.RefreshToken
	}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry.UTC()
		cred.Expiry = &expiry
	}

	if _, err := m.Store(acct, cred); err != nil {
		return fmt.Errorf("failed to persist refreshed credential: %w", err)
	}

	log.Info().Str("account", acct.StatePrefix).Msg("Credential refreshed")
	return nil
}

// Authorized reports whether the account holds a credential valid for
// publishing: structurally present, granted scopes covering RequiredScopes,
// client identity matching the registered secrets file, and either unexpired
// or silently refreshable.
func (m *Manager) Authorized(ctx context.Context, acct *model.Account) bool {
	cred := m.Credentials(ctx, acct)
	if cred == nil {
		return false
	}

	if !cred.HasScopes(RequiredScopes) {
		log.Debug().Str("account", acct.StatePrefix).Msg("Credential is missing required scopes")
		return false
	}

	registered, err := ClientIDFromSecrets(acct.ClientSecretsFile)
	if err != nil {
		log.Debug().Err(err).Str("account", acct.StatePrefix).Msg("Cannot read client secrets for identity check")
		return false
	}
	if cred.ClientID != registered {
		log.Warn().Str("account", acct.StatePrefix).Msg("Credential client_id does not match registered secrets file")
		return false
	}

	if cred.Expired() && cred.RefreshToken == "" {
		return false
	}
	return true
}

// Store persists the credential to the account's normalized token path and
// returns that path so the caller can write it back to the account record.
func (m *Manager) Store(acct *model.Account, cred *Credential) (string, error) {
	path, err := NormalizeTokenPath(acct.TokenFile, acct.StatePrefix)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal credential: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write token file: %w", err)
	}
	return path, nil
}

// ClientIDFromSecrets extracts the registered client identifier from an
// application-secrets file (installed or web shape).
func ClientIDFromSecrets(path string) (string, error) {
	conf, err := loadSecretsConfig(path, "")
	if err != nil {
		return "", err
	}
	return conf.ClientID, nil
}

// OAuthConfig builds the authorization-code flow configuration for an
// account from its registered secrets file.
func (m *Manager) OAuthConfig(acct *model.Account, redirectURL string) (*oauth2.Config, error) {
	return loadSecretsConfig(acct.ClientSecretsFile, redirectURL)
}

func loadSecretsConfig(path, redirectURL string) (*oauth2.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read client secrets file: %w", err)
	}

	conf, err := google.ConfigFromJSON(data, RequiredScopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client secrets file: %w", err)
	}
	if redirectURL != "" {
		conf.RedirectURL = redirectURL
	}
	return conf, nil
}

// CredentialFromToken converts a completed authorization-code exchange into
// the persisted credential shape.
func CredentialFromToken(conf *oauth2.Config, tok *oauth2.Token) *Credential {
	cred := &Credential{
		Token:        tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenURI:     conf.Endpoint.TokenURL,
		ClientID:     conf.ClientID,
		ClientSecret: conf.ClientSecret,
		Scopes:       conf.Scopes,
	}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry.UTC().Truncate(time.Second)
		cred.Expiry = &expiry
	}
	return cred
}
