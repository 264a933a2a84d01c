package repository

import (
	"context"
	"net/http"

	"finsync/internal/core"
)

type ProjectTransactions struct{ d Doer }

var _ ProjectTransactionAPI = (*ProjectTransactions)(nil)

func (r *ProjectTransactions) List(ctx context.Context, accountID, projectID string, f core.ListFilter) (core.Page[core.ProjectTransaction], error) {
	path, err := accountPath(accountID, "project", projectID, "transaction")
	if err != nil {
		return core.Page[core.ProjectTransaction]{}, err
	}
	return list[core.ProjectTransaction](ctx, r.d, path, f.Query())
}

func (r *ProjectTransactions) Create(ctx context.Context, accountID, projectID string, in core.ProjectTransactionInput) (core.ProjectTransaction, error) {
	path, err := accountPath(accountID, "project", projectID, "transaction")
	if err != nil {
		return core.ProjectTransaction{}, err
	}
	return call[core.ProjectTransaction](ctx, r.d, http.MethodPost, path, in)
}

func (r *ProjectTransactions) Update(ctx context.Context, accountID, projectID, id string, in core.ProjectTransactionInput) (core.ProjectTransaction, error) {
	path, err := accountPath(accountID, "project", projectID, "transaction", id)
	if err != nil {
		return core.ProjectTransaction{}, err
	}
	return call[core.ProjectTransaction](ctx, r.d, http.MethodPut, path, in)
}

func (r *ProjectTransactions) Delete(ctx context.Context, accountID, projectID, id string) error {
	path, err := accountPath(accountID, "project", projectID, "transaction", id)
	if err != nil {
		return err
	}
	return r.d.Do(ctx, http.MethodDelete, path, nil, nil, nil)
}
