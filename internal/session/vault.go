package session

import (
	"context"
	"errors"
	"fmt"

	"finsync/internal/core"
)

// Biometric credential cache keys, kept apart from the session token.
const (
	KeyBiometricUsername = "biometric.username"
	KeyBiometricPassword = "biometric.password"
)

var (
	ErrBiometricUnavailable = errors.New("biometric authentication unavailable")
	ErrBiometricRejected    = errors.New("biometric authentication rejected")
	ErrNoStoredCredentials  = errors.New("no stored credentials")
)

// BiometricGate is the hardware check guarding release of cached
// credentials.
type BiometricGate interface {
	IsAvailable(ctx context.Context) bool
	Authenticate(ctx context.Context, prompt string) (bool, error)
}

// NoGate reports biometrics as unavailable.
type NoGate struct{}

func (NoGate) IsAvailable(context.Context) bool { return false }

func (NoGate) Authenticate(context.Context, string) (bool, error) { return false, nil }

// Vault caches sign-in credentials for biometric re-authentication. It never
// signs in by itself: released credentials go through the normal sign-in
// call.
type Vault struct {
	secure SecureStore
	gate   BiometricGate
}

func NewVault(secure SecureStore, gate BiometricGate) *Vault {
	if gate == nil {
		gate = NoGate{}
	}
	return &Vault{secure: secure, gate: gate}
}

func (v *Vault) Remember(ctx context.Context, creds core.Credentials) error {
	if err := v.secure.SetItem(ctx, KeyBiometricUsername, creds.Username); err != nil {
		return fmt.Errorf("store username: %w", err)
	}
	if err := v.secure.SetItem(ctx, KeyBiometricPassword, creds.Password); err != nil {
		_ = v.secure.DeleteItem(ctx, KeyBiometricUsername)
		return fmt.Errorf("store password: %w", err)
	}
	return nil
}

func (v *Vault) Forget(ctx context.Context) error {
	return errors.Join(
		v.secure.DeleteItem(ctx, KeyBiometricUsername),
		v.secure.DeleteItem(ctx, KeyBiometricPassword),
	)
}

func (v *Vault) HasCredentials(ctx context.Context) (bool, error) {
	_, okUser, err := v.secure.GetItem(ctx, KeyBiometricUsername)
	if err != nil {
		return false, err
	}
	_, okPass, err := v.secure.GetItem(ctx, KeyBiometricPassword)
	if err != nil {
		return false, err
	}
	return okUser && okPass, nil
}

// Available reports whether a biometric release could succeed.
func (v *Vault) Available(ctx context.Context) bool {
	return v.gate.IsAvailable(ctx)
}

// Release returns the cached credentials once the gate approves.
func (v *Vault) Release(ctx context.Context, prompt string) (core.Credentials, error) {
	if !v.gate.IsAvailable(ctx) {
		return core.Credentials{}, ErrBiometricUnavailable
	}
	username, okUser, err := v.secure.GetItem(ctx, KeyBiometricUsername)
	if err != nil {
		return core.Credentials{}, fmt.Errorf("read username: %w", err)
	}
	password, okPass, err := v.secure.GetItem(ctx, KeyBiometricPassword)
	if err != nil {
		return core.Credentials{}, fmt.Errorf("read password: %w", err)
	}
	if !okUser || !okPass {
		return core.Credentials{}, ErrNoStoredCredentials
	}
	ok, err := v.gate.Authenticate(ctx, prompt)
	if err != nil {
		return core.Credentials{}, fmt.Errorf("biometric authenticate: %w", err)
	}
	if !ok {
		return core.Credentials{}, ErrBiometricRejected
	}
	return core.Credentials{Username: username, Password: password}, nil
}
