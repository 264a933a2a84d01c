package repository

import (
	"context"
	"net/http"

	"finsync/internal/core"
)

type Labels struct{ d Doer }

var _ LabelAPI = (*Labels)(nil)

func (r *Labels) List(ctx context.Context, accountID string, f core.ListFilter) (core.Page[core.Label], error) {
	path, err := accountPath(accountID, "label")
	if err != nil {
		return core.Page[core.Label]{}, err
	}
	return list[core.Label](ctx, r.d, path, f.Query())
}

func (r *Labels) Create(ctx context.Context, accountID string, in core.LabelInput) (core.Label, error) {
	path, err := accountPath(accountID, "label")
	if err != nil {
		return core.Label{}, err
	}
	return call[core.Label](ctx, r.d, http.MethodPost, path, in)
}

func (r *Labels) Update(ctx context.Context, accountID, id string, in core.LabelInput) (core.Label, error) {
	path, err := accountPath(accountID, "label", id)
	if err != nil {
		return core.Label{}, err
	}
	return call[core.Label](ctx, r.d, http.MethodPut, path, in)
}

// Archive soft-deletes a label; archived labels drop out of default listings.
func (r *Labels) Archive(ctx context.Context, accountID, id string) error {
	path, err := accountPath(accountID, "label", id, "archive")
	if err != nil {
		return err
	}
	return r.d.Do(ctx, http.MethodPost, path, nil, nil, nil)
}
