// Package viewmodel composes repositories with the cache coordinator into
// per-entity models: cached, account-scoped reads plus mutation triggers
// that validate first and invalidate dependents on success.
package viewmodel

import (
	"context"
	"errors"

	"finsync/internal/cache"
	"finsync/internal/core"
)

// AccountSource resolves the acting account at call time.
type AccountSource interface {
	AccountID() (string, error)
}

type validatable interface {
	Validate() error
}

// scoped is the internal mutation input: the caller's input bound to the
// account resolved when Mutate was called.
type scoped[In any] struct {
	accountID string
	in        In
	err       error
}

// Action is a mutation trigger bound to the signed-in account. Inputs that
// implement Validate are checked before any network call; a failure settles
// the call as an error.
type Action[In, Out any] struct {
	accounts AccountSource
	m        *cache.Mutation[scoped[In], Out]
}

func newAction[In, Out any](
	c *cache.Coordinator,
	accounts AccountSource,
	call func(ctx context.Context, accountID string, in In) (Out, error),
	effects func(accountID string, in In, out Out) []cache.Target,
) *Action[In, Out] {
	fn := func(ctx context.Context, s scoped[In]) (Out, error) {
		var zero Out
		if s.err != nil {
			return zero, s.err
		}
		if v, ok := any(s.in).(validatable); ok {
			if err := v.Validate(); err != nil {
				return zero, err
			}
		}
		return call(ctx, s.accountID, s.in)
	}
	eff := func(s scoped[In], out Out) []cache.Target {
		return effects(s.accountID, s.in, out)
	}
	return &Action[In, Out]{accounts: accounts, m: cache.NewMutation(c, fn, eff)}
}

func (a *Action[In, Out]) Mutate(ctx context.Context, in In, cb cache.Callbacks[Out]) (Out, error) {
	acc, err := a.accounts.AccountID()
	return a.m.Mutate(ctx, scoped[In]{accountID: acc, in: in, err: err}, cb)
}

func (a *Action[In, Out]) Status() cache.Status { return a.m.Status() }
func (a *Action[In, Out]) Err() error           { return a.m.Err() }
func (a *Action[In, Out]) Data() Out            { return a.m.Data() }
func (a *Action[In, Out]) Reset()               { a.m.Reset() }

// Done is the output of writes the server answers without a body.
type Done struct{}

// Ref addresses one entity by id.
type Ref struct {
	ID string
}

func (r Ref) Validate() error { return requireIDs(nil, field{"id", r.ID}) }

// effectsOf adapts the fixed dependency table of kind to an Action.
func effectsOf[In, Out any](kind cache.Kind) func(string, In, Out) []cache.Target {
	return func(accountID string, _ In, _ Out) []cache.Target {
		return cache.Dependents(kind, accountID, "")
	}
}

type field struct {
	name  string
	value string
}

// requireIDs reports every empty id field, then the payload problems.
func requireIDs(payload validatable, ids ...field) error {
	var errs core.ValidationErrors
	for _, id := range ids {
		if id.value == "" {
			errs = append(errs, core.FieldError{Field: id.name, Kind: core.ErrRequired})
		}
	}
	if payload != nil {
		if err := payload.Validate(); err != nil {
			var ve core.ValidationErrors
			if !errors.As(err, &ve) {
				return err
			}
			errs = append(errs, ve...)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// fetchScoped resolves the account and runs a cached read under the key
// built for it.
func fetchScoped[T any](ctx context.Context, c *cache.Coordinator, accounts AccountSource, key func(accountID string) cache.Key, fn func(ctx context.Context, accountID string) (T, error)) (T, error) {
	acc, err := accounts.AccountID()
	if err != nil {
		var zero T
		return zero, err
	}
	return cache.Fetch(ctx, c, key(acc), func(ctx context.Context) (T, error) {
		return fn(ctx, acc)
	})
}

// observeScoped is the subscription form of fetchScoped.
func observeScoped[T any](c *cache.Coordinator, accounts AccountSource, key func(accountID string) cache.Key, fn func(ctx context.Context, accountID string) (T, error)) (*cache.Observer[T], error) {
	acc, err := accounts.AccountID()
	if err != nil {
		return nil, err
	}
	return cache.Observe(c, key(acc), func(ctx context.Context) (T, error) {
		return fn(ctx, acc)
	}), nil
}
