package viewmodel

import (
	"context"

	"finsync/internal/cache"
	"finsync/internal/core"
	"finsync/internal/repository"
)

type LabelUpdate struct {
	ID    string
	Input core.LabelInput
}

func (u LabelUpdate) Validate() error { return requireIDs(u.Input, field{"id", u.ID}) }

type Labels struct {
	c        *cache.Coordinator
	accounts AccountSource
	repo     repository.LabelAPI

	Create  *Action[core.LabelInput, core.Label]
	Update  *Action[LabelUpdate, core.Label]
	Archive *Action[Ref, Done]
}

func NewLabels(c *cache.Coordinator, accounts AccountSource, repo repository.LabelAPI) *Labels {
	return &Labels{
		c:        c,
		accounts: accounts,
		repo:     repo,
		Create: newAction(c, accounts,
			func(ctx context.Context, acc string, in core.LabelInput) (core.Label, error) {
				return repo.Create(ctx, acc, in)
			}, effectsOf[core.LabelInput, core.Label](cache.KindLabel)),
		Update: newAction(c, accounts,
			func(ctx context.Context, acc string, in LabelUpdate) (core.Label, error) {
				return repo.Update(ctx, acc, in.ID, in.Input)
			}, effectsOf[LabelUpdate, core.Label](cache.KindLabel)),
		Archive: newAction(c, accounts,
			func(ctx context.Context, acc string, in Ref) (Done, error) {
				return Done{}, repo.Archive(ctx, acc, in.ID)
			}, effectsOf[Ref, Done](cache.KindLabel)),
	}
}

func labelKey(f core.ListFilter) func(string) cache.Key {
	return func(acc string) cache.Key {
		return cache.Key{Kind: cache.KindLabel, AccountID: acc, Variant: f.Key()}
	}
}

func (l *Labels) List(ctx context.Context, f core.ListFilter) (core.Page[core.Label], error) {
	return fetchScoped(ctx, l.c, l.accounts, labelKey(f), func(ctx context.Context, acc string) (core.Page[core.Label], error) {
		return l.repo.List(ctx, acc, f)
	})
}

func (l *Labels) Watch(f core.ListFilter) (*cache.Observer[core.Page[core.Label]], error) {
	return observeScoped(l.c, l.accounts, labelKey(f), func(ctx context.Context, acc string) (core.Page[core.Label], error) {
		return l.repo.List(ctx, acc, f)
	})
}
