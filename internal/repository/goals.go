package repository

import (
	"context"
	"net/http"

	"finsync/internal/core"
)

type Goals struct{ d Doer }

var _ GoalAPI = (*Goals)(nil)

func (r *Goals) List(ctx context.Context, accountID string, f core.ListFilter) (core.Page[core.Goal], error) {
	path, err := accountPath(accountID, "goal")
	if err != nil {
		return core.Page[core.Goal]{}, err
	}
	return list[core.Goal](ctx, r.d, path, f.Query())
}

func (r *Goals) Create(ctx context.Context, accountID, walletID string, in core.GoalInput) (core.Goal, error) {
	path, err := accountPath(accountID, "wallet", walletID, "goal")
	if err != nil {
		return core.Goal{}, err
	}
	return call[core.Goal](ctx, r.d, http.MethodPost, path, in)
}

func (r *Goals) Update(ctx context.Context, accountID, walletID, id string, in core.GoalInput) (core.Goal, error) {
	path, err := accountPath(accountID, "wallet", walletID, "goal", id)
	if err != nil {
		return core.Goal{}, err
	}
	return call[core.Goal](ctx, r.d, http.MethodPut, path, in)
}

func (r *Goals) Archive(ctx context.Context, accountID, id string) error {
	path, err := accountPath(accountID, "goal", id, "archive")
	if err != nil {
		return err
	}
	return r.d.Do(ctx, http.MethodPost, path, nil, nil, nil)
}
