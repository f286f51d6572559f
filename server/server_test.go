package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rotopress/rotopress/accounts"
	"github.com/rotopress/rotopress/auth"
	"github.com/rotopress/rotopress/common"
	"github.com/rotopress/rotopress/feed"
	"github.com/rotopress/rotopress/model"
	"github.com/rotopress/rotopress/probe"
	"github.com/rotopress/rotopress/rotation"
	"github.com/rotopress/rotopress/runner"
	"github.com/rotopress/rotopress/selection"
	"github.com/rotopress/rotopress/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct{}

func (f *fakePublisher) Upload(ctx context.Context, acct *model.Account, localPath string, meta model.Metadata) (model.RunResult, error) {
	return model.RunResult{VideoID: "vid123", VideoURL: "https://www.youtube.com/watch?v=vid123"}, nil
}

func (f *fakePublisher) SetThumbnail(ctx context.Context, acct *model.Account, videoID, thumbPath string) error {
	return nil
}

func (f *fakePublisher) ChannelTitle(ctx context.Context, acct *model.Account) (string, error) {
	return "Test Channel", nil
}

type testEnv struct {
	srv      *httptest.Server
	accounts *accounts.Store
	store    *state.Store
	host     *httptest.Server
}

// newTestEnv wires a full server around a fake video host and one configured
// account.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	host := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "vid (1).mp4") {
			w.Write([]byte("video bytes"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(host.Close)

	cfg := common.DefaultConfig()
	cfg.AccountsFile = filepath.Join(t.TempDir(), "accounts.json")
	cfg.DataDir = t.TempDir()

	store, err := state.NewStore(cfg.DataDir)
	require.NoError(t, err)

	feeds := feed.NewClient(2*time.Second, 2*time.Second)
	sel := selection.NewEngine(feeds, probe.New(2*time.Second), store)
	rot := rotation.NewEngine(feeds, store)
	authManager := auth.NewManager()
	pub := &fakePublisher{}
	orch := runner.NewOrchestrator(sel, rot, store, authManager, pub, feeds)
	acctStore := accounts.NewStore(cfg.AccountsFile)

	require.NoError(t, acctStore.Upsert(model.Account{
		Name:              "Test",
		StatePrefix:       "acct",
		VideoBaseURL:      host.URL,
		MaxIndex:          2,
		IncludePlainVid:   model.IncludePlainNever,
		ClientSecretsFile: filepath.Join(t.TempDir(), "absent-secrets.json"),
		TokenFile:         filepath.Join(t.TempDir(), "absent-token.json"),
	}))

	s := New(cfg, acctStore, store, sel, orch, authManager, pub)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, accounts: acctStore, store: store, host: host}
}

func doJSON(t *testing.T, method, url string, body interface{}) (*http.Response, []byte) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := doJSON(t, http.MethodGet, env.srv.URL+"/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStatusUnknownAccount(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := doJSON(t, http.MethodGet, env.srv.URL+"/api/accounts/nope/status", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatusNeverRun(t *testing.T) {
	env := newTestEnv(t)

	resp, body := doJSON(t, http.MethodGet, env.srv.URL+"/api/accounts/acct/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status model.RunStatus
	require.NoError(t, json.Unmarshal(body, &status))
	assert.Equal(t, model.StatusNever, status.Status)
}

func TestRunUnauthorized(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := doJSON(t, http.MethodPost, env.srv.URL+"/api/accounts/acct/run", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPeekFindsNextVideo(t *testing.T) {
	env := newTestEnv(t)

	resp, body := doJSON(t, http.MethodGet, env.srv.URL+"/api/accounts/acct/peek", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Found bool   `json:"found"`
		Name  string `json:"name"`
		URL   string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.True(t, out.Found)
	assert.Equal(t, "vid (1).mp4", out.Name)

	// peek mutates nothing
	used, err := env.store.LoadUsed("acct")
	require.NoError(t, err)
	assert.Empty(t, used)
}

func TestScanEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, body := doJSON(t, http.MethodGet, env.srv.URL+"/api/accounts/acct/scan?limit=2&include_used=true", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var entries []model.ScanEntry
	require.NoError(t, json.Unmarshal(body, &entries))
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Exists)
	assert.False(t, entries[1].Exists)
}

func TestScanRejectsBadLimit(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := doJSON(t, http.MethodGet, env.srv.URL+"/api/accounts/acct/scan?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestForceNextSetAndClear(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := doJSON(t, http.MethodPost, env.srv.URL+"/api/accounts/acct/force-next", map[string]string{"name": "special.mp4"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	forced, err := env.store.LoadForce("acct")
	require.NoError(t, err)
	assert.Equal(t, "special.mp4", forced)

	// empty name clears the override
	resp, _ = doJSON(t, http.MethodPost, env.srv.URL+"/api/accounts/acct/force-next", map[string]string{"name": ""})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	forced, err = env.store.LoadForce("acct")
	require.NoError(t, err)
	assert.Empty(t, forced)
}

func TestUsedListAndClear(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.MarkUsed("acct", "vid (1).mp4"))

	resp, body := doJSON(t, http.MethodGet, env.srv.URL+"/api/accounts/acct/used", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string][]string
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, []string{"vid (1).mp4"}, out["used"])

	resp, _ = doJSON(t, http.MethodDelete, env.srv.URL+"/api/accounts/acct/used", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	used, err := env.store.LoadUsed("acct")
	require.NoError(t, err)
	assert.Empty(t, used)
}

func TestAccountCRUD(t *testing.T) {
	env := newTestEnv(t)

	newAcct := model.Account{
		Name:              "Second",
		StatePrefix:       "second",
		VideoBaseURL:      env.host.URL,
		ClientSecretsFile: "secrets/second.json",
		TokenFile:         filepath.Join(t.TempDir(), "second-token.json"),
	}
	resp, _ := doJSON(t, http.MethodPost, env.srv.URL+"/api/accounts", newAcct)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, http.MethodGet, env.srv.URL+"/api/accounts/second", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got model.Account
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "Second", got.Name)

	resp, _ = doJSON(t, http.MethodDelete, env.srv.URL+"/api/accounts/second", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, env.srv.URL+"/api/accounts/second", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAccountUpsertRejectsInvalid(t *testing.T) {
	env := newTestEnv(t)

	bad := map[string]string{"name": "No Prefix"}
	resp, _ := doJSON(t, http.MethodPost, env.srv.URL+"/api/accounts", bad)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAllStatus(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.SaveStatus("acct", model.StatusSuccess, "done"))

	resp, body := doJSON(t, http.MethodGet, env.srv.URL+"/api/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]model.RunStatus
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, model.StatusSuccess, out["acct"].Status)
}
