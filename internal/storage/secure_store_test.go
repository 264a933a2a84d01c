package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finsync/internal/session"
)

func testKey(b byte) [32]byte {
	var k [32]byte
	for i := range k {
		k[i] = b
	}
	return k
}

func openStore(t *testing.T, path string, key [32]byte) *SecureStore {
	t.Helper()
	s, err := NewSecureStore(path, key, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSecureStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, filepath.Join(t.TempDir(), "creds.db"), testKey(1))

	_, ok, err := s.GetItem(ctx, "token")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetItem(ctx, "token", "abc"))
	require.NoError(t, s.SetItem(ctx, "token", "def"))

	v, ok, err := s.GetItem(ctx, "token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "def", v)

	require.NoError(t, s.DeleteItem(ctx, "token"))
	_, ok, err = s.GetItem(ctx, "token")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSecureStoreSealsValuesAtRest(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "creds.db")
	s := openStore(t, path, testKey(2))
	require.NoError(t, s.SetItem(ctx, "token", "plain-token-value"))

	raw, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer raw.Close()
	var stored []byte
	require.NoError(t, raw.QueryRow(`SELECT value FROM secure_items WHERE key = 'token'`).Scan(&stored))
	assert.False(t, strings.Contains(string(stored), "plain-token-value"))
}

func TestSecureStoreWrongKey(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "creds.db")
	s := openStore(t, path, testKey(3))
	require.NoError(t, s.SetItem(ctx, "token", "abc"))
	require.NoError(t, s.Close())

	other := openStore(t, path, testKey(4))
	_, _, err := other.GetItem(ctx, "token")
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestSecureStoreBacksSession(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "creds.db")

	first := session.New(openStore(t, path, testKey(5)))
	require.NoError(t, first.SetAuth(ctx, "tok", "acc-1", "alice"))

	// A new process restores from the same file.
	second := session.New(openStore(t, path, testKey(5)))
	require.NoError(t, second.LoadStorage(ctx))
	assert.Equal(t, "acc-1", second.Current().AccountID)
	assert.Equal(t, "alice", second.Current().Username)
}
