package viewmodel

import (
	"context"
	"fmt"

	"finsync/internal/cache"
	"finsync/internal/core"
	"finsync/internal/log"
	"finsync/internal/repository"
	"finsync/internal/session"
)

// Auth signs users in and out. Biometric sign-in only unlocks cached
// credentials; the backend call is the same as a typed sign-in.
type Auth struct {
	repo    repository.AuthAPI
	session *session.Store
	vault   *session.Vault
	logger  *log.Logger
}

func NewAuth(repo repository.AuthAPI, store *session.Store, vault *session.Vault, logger *log.Logger) *Auth {
	if logger == nil {
		logger = log.Discard()
	}
	return &Auth{repo: repo, session: store, vault: vault, logger: logger.WithComponent(log.ComponentSession)}
}

func (a *Auth) SignIn(ctx context.Context, creds core.Credentials) (core.AuthResult, error) {
	if err := creds.Validate(); err != nil {
		return core.AuthResult{}, err
	}
	res, err := a.repo.SignIn(ctx, creds)
	if err != nil {
		return core.AuthResult{}, err
	}
	return res, a.establish(ctx, res)
}

func (a *Auth) SignUp(ctx context.Context, in core.SignUpInput) (core.AuthResult, error) {
	if err := in.Validate(); err != nil {
		return core.AuthResult{}, err
	}
	res, err := a.repo.SignUp(ctx, in)
	if err != nil {
		return core.AuthResult{}, err
	}
	return res, a.establish(ctx, res)
}

// SignInWithBiometrics releases the cached credentials behind the
// biometric gate and signs in with them.
func (a *Auth) SignInWithBiometrics(ctx context.Context, prompt string) (core.AuthResult, error) {
	if a.vault == nil {
		return core.AuthResult{}, session.ErrBiometricUnavailable
	}
	creds, err := a.vault.Release(ctx, prompt)
	if err != nil {
		return core.AuthResult{}, err
	}
	return a.SignIn(ctx, creds)
}

// RememberForBiometrics caches creds for a later biometric sign-in.
func (a *Auth) RememberForBiometrics(ctx context.Context, creds core.Credentials) error {
	if a.vault == nil || !a.vault.Available(ctx) {
		return session.ErrBiometricUnavailable
	}
	return a.vault.Remember(ctx, creds)
}

func (a *Auth) Logout(ctx context.Context) error {
	return a.session.Logout(ctx)
}

func (a *Auth) Session() core.Session { return a.session.Current() }

func (a *Auth) establish(ctx context.Context, res core.AuthResult) error {
	if err := a.session.SetAuth(ctx, res.Token, res.Account.ID, res.Account.Username); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	a.logger.InfoContext(ctx, "Signed in", log.FieldAccountID, res.Account.ID)
	return nil
}

// BindSession empties the cache whenever the acting account goes away or
// changes, so no read can be served from another account's data. On sign-in,
// observers still open for that account refetch.
func BindSession(store *session.Store, c *cache.Coordinator) (unbind func()) {
	return store.Subscribe(func(e session.Event) {
		switch e.Type {
		case session.EventLogout:
			c.Clear()
		case session.EventLogin, session.EventRestored:
			if e.Previous.AccountID != "" && e.Previous.AccountID != e.Session.AccountID {
				c.Clear()
			}
			c.Resume(e.Session.AccountID)
		}
	})
}
