package viewmodel

import (
	"context"

	"finsync/internal/cache"
	"finsync/internal/core"
	"finsync/internal/repository"
)

type WalletUpdate struct {
	ID    string
	Input core.WalletInput
}

func (u WalletUpdate) Validate() error { return requireIDs(u.Input, field{"id", u.ID}) }

type AutomaticIncomeUpdate struct {
	WalletID string
	Input    core.AutomaticIncomeInput
}

func (u AutomaticIncomeUpdate) Validate() error {
	return requireIDs(u.Input, field{"walletId", u.WalletID})
}

type Wallets struct {
	c        *cache.Coordinator
	accounts AccountSource
	repo     repository.WalletAPI

	Create                *Action[core.WalletInput, core.Wallet]
	Update                *Action[WalletUpdate, core.Wallet]
	UpdateAutomaticIncome *Action[AutomaticIncomeUpdate, core.Wallet]
}

func NewWallets(c *cache.Coordinator, accounts AccountSource, repo repository.WalletAPI) *Wallets {
	return &Wallets{
		c:        c,
		accounts: accounts,
		repo:     repo,
		Create: newAction(c, accounts,
			func(ctx context.Context, acc string, in core.WalletInput) (core.Wallet, error) {
				return repo.Create(ctx, acc, in)
			}, effectsOf[core.WalletInput, core.Wallet](cache.KindWallet)),
		Update: newAction(c, accounts,
			func(ctx context.Context, acc string, in WalletUpdate) (core.Wallet, error) {
				return repo.Update(ctx, acc, in.ID, in.Input)
			}, effectsOf[WalletUpdate, core.Wallet](cache.KindWallet)),
		UpdateAutomaticIncome: newAction(c, accounts,
			func(ctx context.Context, acc string, in AutomaticIncomeUpdate) (core.Wallet, error) {
				return repo.UpdateAutomaticIncome(ctx, acc, in.WalletID, in.Input)
			}, effectsOf[AutomaticIncomeUpdate, core.Wallet](cache.KindWallet)),
	}
}

func walletKey(f core.ListFilter) func(string) cache.Key {
	return func(acc string) cache.Key {
		return cache.Key{Kind: cache.KindWallet, AccountID: acc, Variant: f.Key()}
	}
}

func (w *Wallets) List(ctx context.Context, f core.ListFilter) (core.Page[core.Wallet], error) {
	return fetchScoped(ctx, w.c, w.accounts, walletKey(f), func(ctx context.Context, acc string) (core.Page[core.Wallet], error) {
		return w.repo.List(ctx, acc, f)
	})
}

func (w *Wallets) Watch(f core.ListFilter) (*cache.Observer[core.Page[core.Wallet]], error) {
	return observeScoped(w.c, w.accounts, walletKey(f), func(ctx context.Context, acc string) (core.Page[core.Wallet], error) {
		return w.repo.List(ctx, acc, f)
	})
}

// Active returns the wallets that may receive transactions.
func (w *Wallets) Active(ctx context.Context) ([]core.Wallet, error) {
	page, err := w.List(ctx, core.ListFilter{})
	if err != nil {
		return nil, err
	}
	active := make([]core.Wallet, 0, len(page.Values))
	for _, wallet := range page.Values {
		if wallet.IsActive {
			active = append(active, wallet)
		}
	}
	return active, nil
}
