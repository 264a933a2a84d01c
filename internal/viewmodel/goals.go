package viewmodel

import (
	"context"

	"finsync/internal/cache"
	"finsync/internal/core"
	"finsync/internal/repository"
)

type GoalCreate struct {
	WalletID string
	Input    core.GoalInput
}

func (g GoalCreate) Validate() error { return requireIDs(g.Input, field{"walletId", g.WalletID}) }

type GoalUpdate struct {
	WalletID string
	ID       string
	Input    core.GoalInput
}

func (g GoalUpdate) Validate() error {
	return requireIDs(g.Input, field{"walletId", g.WalletID}, field{"id", g.ID})
}

type Goals struct {
	c        *cache.Coordinator
	accounts AccountSource
	repo     repository.GoalAPI

	Create  *Action[GoalCreate, core.Goal]
	Update  *Action[GoalUpdate, core.Goal]
	Archive *Action[Ref, Done]
}

func NewGoals(c *cache.Coordinator, accounts AccountSource, repo repository.GoalAPI) *Goals {
	return &Goals{
		c:        c,
		accounts: accounts,
		repo:     repo,
		Create: newAction(c, accounts,
			func(ctx context.Context, acc string, in GoalCreate) (core.Goal, error) {
				return repo.Create(ctx, acc, in.WalletID, in.Input)
			}, effectsOf[GoalCreate, core.Goal](cache.KindGoal)),
		Update: newAction(c, accounts,
			func(ctx context.Context, acc string, in GoalUpdate) (core.Goal, error) {
				return repo.Update(ctx, acc, in.WalletID, in.ID, in.Input)
			}, effectsOf[GoalUpdate, core.Goal](cache.KindGoal)),
		Archive: newAction(c, accounts,
			func(ctx context.Context, acc string, in Ref) (Done, error) {
				return Done{}, repo.Archive(ctx, acc, in.ID)
			}, effectsOf[Ref, Done](cache.KindGoal)),
	}
}

func goalKey(f core.ListFilter) func(string) cache.Key {
	return func(acc string) cache.Key {
		return cache.Key{Kind: cache.KindGoal, AccountID: acc, Variant: f.Key()}
	}
}

func (g *Goals) List(ctx context.Context, f core.ListFilter) (core.Page[core.Goal], error) {
	return fetchScoped(ctx, g.c, g.accounts, goalKey(f), func(ctx context.Context, acc string) (core.Page[core.Goal], error) {
		return g.repo.List(ctx, acc, f)
	})
}

func (g *Goals) Watch(f core.ListFilter) (*cache.Observer[core.Page[core.Goal]], error) {
	return observeScoped(g.c, g.accounts, goalKey(f), func(ctx context.Context, acc string) (core.Page[core.Goal], error) {
		return g.repo.List(ctx, acc, f)
	})
}
