package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finsync/internal/core"
)

type fakeGate struct {
	available bool
	approve   bool
	err       error
	prompts   []string
}

func (g *fakeGate) IsAvailable(context.Context) bool { return g.available }

func (g *fakeGate) Authenticate(_ context.Context, prompt string) (bool, error) {
	g.prompts = append(g.prompts, prompt)
	return g.approve, g.err
}

func TestVaultRelease(t *testing.T) {
	ctx := context.Background()
	creds := core.Credentials{Username: "alice", Password: "s3cret"}

	t.Run("approved", func(t *testing.T) {
		gate := &fakeGate{available: true, approve: true}
		v := NewVault(NewMemoryStore(), gate)
		require.NoError(t, v.Remember(ctx, creds))

		got, err := v.Release(ctx, "Unlock finsync")
		require.NoError(t, err)
		assert.Equal(t, creds, got)
		assert.Equal(t, []string{"Unlock finsync"}, gate.prompts)
	})

	t.Run("rejected", func(t *testing.T) {
		v := NewVault(NewMemoryStore(), &fakeGate{available: true, approve: false})
		require.NoError(t, v.Remember(ctx, creds))
		_, err := v.Release(ctx, "p")
		assert.ErrorIs(t, err, ErrBiometricRejected)
	})

	t.Run("hardware error", func(t *testing.T) {
		v := NewVault(NewMemoryStore(), &fakeGate{available: true, err: errors.New("sensor")})
		require.NoError(t, v.Remember(ctx, creds))
		_, err := v.Release(ctx, "p")
		require.Error(t, err)
	})

	t.Run("unavailable", func(t *testing.T) {
		v := NewVault(NewMemoryStore(), nil)
		require.NoError(t, v.Remember(ctx, creds))
		_, err := v.Release(ctx, "p")
		assert.ErrorIs(t, err, ErrBiometricUnavailable)
	})

	t.Run("nothing stored", func(t *testing.T) {
		gate := &fakeGate{available: true, approve: true}
		v := NewVault(NewMemoryStore(), gate)
		_, err := v.Release(ctx, "p")
		assert.ErrorIs(t, err, ErrNoStoredCredentials)
		assert.Empty(t, gate.prompts, "gate must not prompt without credentials")
	})
}

func TestVaultKeysAreSeparateFromSession(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	s := New(mem)
	v := NewVault(mem, nil)

	require.NoError(t, v.Remember(ctx, core.Credentials{Username: "a", Password: "b"}))
	require.NoError(t, s.SetAuth(ctx, "tok", "acc", "a"))
	require.NoError(t, s.Logout(ctx))

	ok, err := v.HasCredentials(ctx)
	require.NoError(t, err)
	assert.True(t, ok, "logout must not drop biometric credentials")

	require.NoError(t, v.Forget(ctx))
	ok, err = v.HasCredentials(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
