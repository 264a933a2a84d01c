package repository

import (
	"context"
	"net/http"

	"finsync/internal/core"
)

type Wallets struct{ d Doer }

var _ WalletAPI = (*Wallets)(nil)

func (r *Wallets) List(ctx context.Context, accountID string, f core.ListFilter) (core.Page[core.Wallet], error) {
	path, err := accountPath(accountID, "wallet")
	if err != nil {
		return core.Page[core.Wallet]{}, err
	}
	return list[core.Wallet](ctx, r.d, path, f.Query())
}

func (r *Wallets) Create(ctx context.Context, accountID string, in core.WalletInput) (core.Wallet, error) {
	path, err := accountPath(accountID, "wallet")
	if err != nil {
		return core.Wallet{}, err
	}
	return call[core.Wallet](ctx, r.d, http.MethodPost, path, in)
}

func (r *Wallets) Update(ctx context.Context, accountID, id string, in core.WalletInput) (core.Wallet, error) {
	path, err := accountPath(accountID, "wallet", id)
	if err != nil {
		return core.Wallet{}, err
	}
	return call[core.Wallet](ctx, r.d, http.MethodPut, path, in)
}

// UpdateAutomaticIncome replaces the recurring income rule of a wallet.
func (r *Wallets) UpdateAutomaticIncome(ctx context.Context, accountID, id string, in core.AutomaticIncomeInput) (core.Wallet, error) {
	path, err := accountPath(accountID, "wallet", id, "automaticIncome")
	if err != nil {
		return core.Wallet{}, err
	}
	return call[core.Wallet](ctx, r.d, http.MethodPut, path, in)
}
