package viewmodel

import (
	"context"

	"finsync/internal/cache"
	"finsync/internal/core"
	"finsync/internal/repository"
)

type TransactionCreate struct {
	WalletID string
	Input    core.TransactionInput
}

func (t TransactionCreate) Validate() error {
	return requireIDs(t.Input, field{"walletId", t.WalletID})
}

type TransactionUpdate struct {
	WalletID string
	ID       string
	Input    core.TransactionInput
}

func (t TransactionUpdate) Validate() error {
	return requireIDs(t.Input, field{"walletId", t.WalletID}, field{"id", t.ID})
}

type TransactionRef struct {
	WalletID string
	ID       string
}

func (t TransactionRef) Validate() error {
	return requireIDs(nil, field{"walletId", t.WalletID}, field{"id", t.ID})
}

// Transactions moves money, so its writes also invalidate wallet balances
// and goal progress.
type Transactions struct {
	c        *cache.Coordinator
	accounts AccountSource
	repo     repository.TransactionAPI

	Create *Action[TransactionCreate, core.Transaction]
	Update *Action[TransactionUpdate, core.Transaction]
	Delete *Action[TransactionRef, Done]
}

func NewTransactions(c *cache.Coordinator, accounts AccountSource, repo repository.TransactionAPI) *Transactions {
	return &Transactions{
		c:        c,
		accounts: accounts,
		repo:     repo,
		Create: newAction(c, accounts,
			func(ctx context.Context, acc string, in TransactionCreate) (core.Transaction, error) {
				return repo.Create(ctx, acc, in.WalletID, in.Input)
			}, effectsOf[TransactionCreate, core.Transaction](cache.KindTransaction)),
		Update: newAction(c, accounts,
			func(ctx context.Context, acc string, in TransactionUpdate) (core.Transaction, error) {
				return repo.Update(ctx, acc, in.WalletID, in.ID, in.Input)
			}, effectsOf[TransactionUpdate, core.Transaction](cache.KindTransaction)),
		Delete: newAction(c, accounts,
			func(ctx context.Context, acc string, in TransactionRef) (Done, error) {
				return Done{}, repo.Delete(ctx, acc, in.WalletID, in.ID)
			}, effectsOf[TransactionRef, Done](cache.KindTransaction)),
	}
}

func transactionKey(f core.TransactionFilter) func(string) cache.Key {
	return func(acc string) cache.Key {
		return cache.Key{Kind: cache.KindTransaction, AccountID: acc, Variant: f.Key()}
	}
}

// List validates the filter before reading.
func (t *Transactions) List(ctx context.Context, f core.TransactionFilter) (core.Page[core.Transaction], error) {
	if err := f.Validate(); err != nil {
		return core.Page[core.Transaction]{}, err
	}
	return fetchScoped(ctx, t.c, t.accounts, transactionKey(f), func(ctx context.Context, acc string) (core.Page[core.Transaction], error) {
		return t.repo.List(ctx, acc, f)
	})
}

func (t *Transactions) Watch(f core.TransactionFilter) (*cache.Observer[core.Page[core.Transaction]], error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return observeScoped(t.c, t.accounts, transactionKey(f), func(ctx context.Context, acc string) (core.Page[core.Transaction], error) {
		return t.repo.List(ctx, acc, f)
	})
}
