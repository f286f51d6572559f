package accounts

import (
	"path/filepath"
	"testing"

	"github.com/rotopress/rotopress/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "accounts.json"))
}

func validAccount(prefix string) model.Account {
	return model.Account{
		Name:              "Channel " + prefix,
		StatePrefix:       prefix,
		VideoBaseURL:      "http://host/videos",
		ClientSecretsFile: "secrets/client.json",
	}
}

func TestListEmptyWhenFileMissing(t *testing.T) {
	store := newTestStore(t)

	accts, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, accts)
}

func TestUpsertAndGet(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Upsert(validAccount("a")))
	require.NoError(t, store.Upsert(validAccount("b")))

	acct, err := store.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "Channel a", acct.Name)

	accts, err := store.List()
	require.NoError(t, err)
	assert.Len(t, accts, 2)
}

func TestUpsertReplacesByPrefix(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Upsert(validAccount("a")))

	updated := validAccount("a")
	updated.Name = "Renamed"
	require.NoError(t, store.Upsert(updated))

	accts, err := store.List()
	require.NoError(t, err)
	require.Len(t, accts, 1)
	assert.Equal(t, "Renamed", accts[0].Name)
}

func TestUpsertRejectsInvalidAccount(t *testing.T) {
	store := newTestStore(t)

	acct := validAccount("a")
	acct.VideoBaseURL = "not a url"
	assert.Error(t, store.Upsert(acct))

	acct = validAccount("b")
	acct.StatePrefix = ""
	assert.Error(t, store.Upsert(acct))

	acct = validAccount("c")
	acct.IncludePlainVid = "sometimes"
	assert.Error(t, store.Upsert(acct))
}

func TestGetUnknownPrefix(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Upsert(validAccount("a")))
	require.NoError(t, store.Delete("a"))

	_, err := store.Get("a")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, store.Delete("a"), ErrNotFound)
}

func TestSetTokenFile(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Upsert(validAccount("a")))
	require.NoError(t, store.SetTokenFile("a", "tokens/a.json"))

	acct, err := store.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "tokens/a.json", acct.TokenFile)

	assert.ErrorIs(t, store.SetTokenFile("missing", "x"), ErrNotFound)
}
