// Package auth manages the long-lived authorization material for publishing
// accounts: token-file persistence, scope and client-identity validation,
// silent refresh and the authorization-code handoff.
package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"
)

// RequiredScopes are the grants a credential must hold to be usable for
// publishing.
var RequiredScopes = []string{
	"https://www.googleapis.com/auth/youtube.upload",
	"https://www.googleapis.com/auth/youtube",
	"https://www.googleapis.com/auth/youtubepartner",
}

// Credential is the persisted authorization material for one account. The
// JSON shape mirrors the token files written by earlier deployments, expiry
// included as RFC3339 or null.
type Credential struct {
	Token        string     `json:"token"`
	RefreshToken string     `json:"refresh_token"`
	TokenURI     string     `json:"token_uri"`
	ClientID     string     `json:"client_id"`
	ClientSecret string     `json:"client_secret"`
	Scopes       []string   `json:"scopes"`
	Expiry       *time.Time `json:"expiry"`
}

// Expired reports whether the credential's access token is past its expiry.
// A credential without an expiry never reports itself expired.
func (c *Credential) Expired() bool {
	return c.Expiry != nil && time.Now().After(*c.Expiry)
}

// HasScopes reports whether the granted scopes are a superset of required.
func (c *Credential) HasScopes(required []string) bool {
	granted := make(map[string]bool, len(c.Scopes))
	for _, s := range c.Scopes {
		granted[s] = true
	}
	for _, s := range required {
		if !granted[s] {
			return false
		}
	}
	return true
}

// OAuthToken converts the credential into an oauth2 token.
func (c *Credential) OAuthToken() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  c.Token,
		RefreshToken: c.RefreshToken,
		TokenType:    "Bearer",
	}
	if c.Expiry != nil {
		tok.Expiry = *c.Expiry
	}
	return tok
}

// oauthConfig builds the minimal oauth2 config needed to refresh this
// credential against its own token endpoint.
func (c *Credential) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: c.TokenURI},
		Scopes:       c.Scopes,
	}
}

// readCredential loads and structurally checks a token file. A credential
// without a client_id is treated as absent.
func readCredential(path string) (*Credential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("failed to parse token file %s: %w", path, err)
	}
	if cred.ClientID == "" {
		return nil, fmt.Errorf("token file %s has no client_id", path)
	}
	return &cred, nil
}
