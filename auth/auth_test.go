package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotopress/rotopress/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeSecretsFile creates a client-secrets file registering clientID.
func writeSecretsFile(t *testing.T, dir, clientID string) string {
	t.Helper()
	doc := map[string]interface{}{
		"installed": map[string]interface{}{
			"client_id":     clientID,
			"client_secret": "shhh",
			"auth_uri":      "https://accounts.google.com/o/oauth2/auth",
			"token_uri":     "https://oauth2.googleapis.com/token",
			"redirect_uris": []string{"http://localhost"},
		},
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)

	path := filepath.Join(dir, "client_secret.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func writeCredential(t *testing.T, path string, cred *Credential) {
	t.Helper()
	data, err := json.MarshalIndent(cred, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

func validCredential(expiry *time.Time) *Credential {
	return &Credential{
		Token:        "access-token",
		RefreshToken: "refresh-token",
		TokenURI:     "https://oauth2.googleapis.com/token",
		ClientID:     "cid-123",
		ClientSecret: "shhh",
		Scopes:       RequiredScopes,
		Expiry:       expiry,
	}
}

func TestNormalizeTokenPath(t *testing.T) {
	t.Chdir(t.TempDir())

	existingDir := filepath.Join(".", "existing")
	require.NoError(t, os.MkdirAll(existingDir, 0o755))

	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", filepath.Join("tokens", "acct.json")},
		{"bare tokens", "tokens", filepath.Join("tokens", "acct.json")},
		{"tokens with slash", "tokens/", filepath.Join("tokens", "acct.json")},
		{"tokens backslash", "tokens\\", filepath.Join("tokens", "acct.json")},
		{"existing directory", existingDir, filepath.Join(existingDir, "acct.json")},
		{"plain file path", "tokens/custom.json", "tokens/custom.json"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeTokenPath(tc.input, "acct")
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeTokenPathCreatesParent(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := NormalizeTokenPath("deep/nested/token.json", "acct")
	require.NoError(t, err)

	info, err := os.Stat("deep/nested")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCredentialRoundTripPreservesShape(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token.json")

	expiry := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	writeCredential(t, path, validCredential(&expiry))

	cred, err := readCredential(path)
	require.NoError(t, err)
	assert.Equal(t, "access-token", cred.Token)
	assert.Equal(t, "cid-123", cred.ClientID)
	assert.Equal(t, RequiredScopes, cred.Scopes)
	require.NotNil(t, cred.Expiry)
	assert.True(t, expiry.Equal(*cred.Expiry))

	// raw document carries the expected keys, expiry as RFC3339
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))
	for _, key := range []string{"token", "refresh_token", "token_uri", "client_id", "client_secret", "scopes", "expiry"} {
		assert.Contains(t, doc, key)
	}
	assert.Equal(t, "2026-09-01T12:00:00Z", doc["expiry"])
}

func TestCredentialNullExpiry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"client_id":"cid-123","token":"x","expiry":null}`), 0o600))

	cred, err := readCredential(path)
	require.NoError(t, err)
	assert.Nil(t, cred.Expiry)
	assert.False(t, cred.Expired())
}

func TestReadCredentialMissingClientID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"token":"x"}`), 0o600))

	_, err := readCredential(path)
	assert.Error(t, err)
}

func TestAuthorizedHappyPath(t *testing.T) {
	dir := t.TempDir()
	tokenPath := filepath.Join(dir, "token.json")

	expiry := time.Now().Add(time.Hour).UTC()
	writeCredential(t, tokenPath, validCredential(&expiry))

	acct := &model.Account{
		StatePrefix:       "acct",
		TokenFile:         tokenPath,
		ClientSecretsFile: writeSecretsFile(t, dir, "cid-123"),
	}

	assert.True(t, NewManager().Authorized(context.Background(), acct))
}

func TestAuthorizedMissingScopeRejected(t *testing.T) {
	dir := t.TempDir()
	tokenPath := filepath.Join(dir, "token.json")

	expiry := time.Now().Add(time.Hour).UTC()
	cred := validCredential(&expiry)
	cred.Scopes = RequiredScopes[:2] // youtubepartner missing
	writeCredential(t, tokenPath, cred)

	acct := &model.Account{
		StatePrefix:       "acct",
		TokenFile:         tokenPath,
		ClientSecretsFile: writeSecretsFile(t, dir, "cid-123"),
	}

	assert.False(t, NewManager().Authorized(context.Background(), acct))
}

func TestAuthorizedClientIDMismatchRejected(t *testing.T) {
	dir := t.TempDir()
	tokenPath := filepath.Join(dir, "token.json")

	expiry := time.Now().Add(time.Hour).UTC()
	writeCredential(t, tokenPath, validCredential(&expiry))

	acct := &model.Account{
		StatePrefix:       "acct",
		TokenFile:         tokenPath,
		ClientSecretsFile: writeSecretsFile(t, dir, "other-client"),
	}

	assert.False(t, NewManager().Authorized(context.Background(), acct))
}

func TestAuthorizedNoCredential(t *testing.T) {
	dir := t.TempDir()
	acct := &model.Account{
		StatePrefix:       "acct",
		TokenFile:         filepath.Join(dir, "absent.json"),
		ClientSecretsFile: writeSecretsFile(t, dir, "cid-123"),
	}

	assert.False(t, NewManager().Authorized(context.Background(), acct))
}

func TestAuthorizedExpiredWithoutRefreshTokenRejected(t *testing.T) {
	dir := t.TempDir()
	tokenPath := filepath.Join(dir, "token.json")

	expiry := time.Now().Add(-time.Hour).UTC()
	cred := validCredential(&expiry)
	cred.RefreshToken = ""
	writeCredential(t, tokenPath, cred)

	acct := &model.Account{
		StatePrefix:       "acct",
		TokenFile:         tokenPath,
		ClientSecretsFile: writeSecretsFile(t, dir, "cid-123"),
	}

	assert.False(t, NewManager().Authorized(context.Background(), acct))
}

func TestCredentialsRefreshesExpiredToken(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"fresh-token","token_type":"Bearer","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	dir := t.TempDir()
	tokenPath := filepath.Join(dir, "token.json")

	expiry := time.Now().Add(-time.Hour).UTC()
	cred := validCredential(&expiry)
	cred.TokenURI = tokenSrv.URL
	writeCredential(t, tokenPath, cred)

	acct := &model.Account{StatePrefix: "acct", TokenFile: tokenPath}

	got := NewManager().Credentials(context.Background(), acct)
	require.NotNil(t, got)
	assert.Equal(t, "fresh-token", got.Token)
	require.NotNil(t, got.Expiry)
	assert.True(t, got.Expiry.After(time.Now()))

	// the refresh is persisted in place
	stored, err := readCredential(tokenPath)
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", stored.Token)
}

func TestCredentialsRefreshFailureReturnsStale(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer tokenSrv.Close()

	dir := t.TempDir()
	tokenPath := filepath.Join(dir, "token.json")

	expiry := time.Now().Add(-time.Hour).UTC()
	cred := validCredential(&expiry)
	cred.TokenURI = tokenSrv.URL
	writeCredential(t, tokenPath, cred)

	acct := &model.Account{StatePrefix: "acct", TokenFile: tokenPath}

	got := NewManager().Credentials(context.Background(), acct)
	require.NotNil(t, got)
	assert.Equal(t, "access-token", got.Token, "stale credential is still returned")

	stored, err := readCredential(tokenPath)
	require.NoError(t, err)
	assert.Equal(t, "access-token", stored.Token, "stored credential untouched on failed refresh")
}

func TestHasScopes(t *testing.T) {
	cred := &Credential{Scopes: RequiredScopes}
	assert.True(t, cred.HasScopes(RequiredScopes))

	cred.Scopes = append([]string{"extra.scope"}, RequiredScopes...)
	assert.True(t, cred.HasScopes(RequiredScopes))

	cred.Scopes = []string{"extra.scope"}
	assert.False(t, cred.HasScopes(RequiredScopes))
}

func TestClientIDFromSecrets(t *testing.T) {
	dir := t.TempDir()
	path := writeSecretsFile(t, dir, "cid-999")

	id, err := ClientIDFromSecrets(path)
	require.NoError(t, err)
	assert.Equal(t, "cid-999", id)
}
