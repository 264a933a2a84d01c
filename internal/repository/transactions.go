package repository

import (
	"context"
	"net/http"

	"finsync/internal/core"
)

type Transactions struct{ d Doer }

var _ TransactionAPI = (*Transactions)(nil)

func (r *Transactions) List(ctx context.Context, accountID string, f core.TransactionFilter) (core.Page[core.Transaction], error) {
	path, err := accountPath(accountID, "transaction")
	if err != nil {
		return core.Page[core.Transaction]{}, err
	}
	return list[core.Transaction](ctx, r.d, path, f.Query())
}

func (r *Transactions) Create(ctx context.Context, accountID, walletID string, in core.TransactionInput) (core.Transaction, error) {
	path, err := accountPath(accountID, "wallet", walletID, "transaction")
	if err != nil {
		return core.Transaction{}, err
	}
	return call[core.Transaction](ctx, r.d, http.MethodPost, path, in)
}

func (r *Transactions) Update(ctx context.Context, accountID, walletID, id string, in core.TransactionInput) (core.Transaction, error) {
	path, err := accountPath(accountID, "wallet", walletID, "transaction", id)
	if err != nil {
		return core.Transaction{}, err
	}
	return call[core.Transaction](ctx, r.d, http.MethodPut, path, in)
}

func (r *Transactions) Delete(ctx context.Context, accountID, walletID, id string) error {
	path, err := accountPath(accountID, "wallet", walletID, "transaction", id)
	if err != nil {
		return err
	}
	return r.d.Do(ctx, http.MethodDelete, path, nil, nil, nil)
}
