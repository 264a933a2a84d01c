package viewmodel

import (
	"context"

	"finsync/internal/cache"
	"finsync/internal/core"
	"finsync/internal/repository"
)

type ProjectTransactionCreate struct {
	ProjectID string
	Input     core.ProjectTransactionInput
}

func (p ProjectTransactionCreate) Validate() error {
	return requireIDs(p.Input, field{"projectId", p.ProjectID})
}

type ProjectTransactionUpdate struct {
	ProjectID string
	ID        string
	Input     core.ProjectTransactionInput
}

func (p ProjectTransactionUpdate) Validate() error {
	return requireIDs(p.Input, field{"projectId", p.ProjectID}, field{"id", p.ID})
}

type ProjectTransactionRef struct {
	ProjectID string
	ID        string
}

func (p ProjectTransactionRef) Validate() error {
	return requireIDs(nil, field{"projectId", p.ProjectID}, field{"id", p.ID})
}

// ProjectTransactions caches per project; writes invalidate only the
// project they belong to and its statistics.
type ProjectTransactions struct {
	c        *cache.Coordinator
	accounts AccountSource
	repo     repository.ProjectTransactionAPI

	Create *Action[ProjectTransactionCreate, core.ProjectTransaction]
	Update *Action[ProjectTransactionUpdate, core.ProjectTransaction]
	Delete *Action[ProjectTransactionRef, Done]
}

func projectScoped[In, Out any](project func(In) string) func(string, In, Out) []cache.Target {
	return func(acc string, in In, _ Out) []cache.Target {
		return cache.Dependents(cache.KindProjectTransaction, acc, project(in))
	}
}

func NewProjectTransactions(c *cache.Coordinator, accounts AccountSource, repo repository.ProjectTransactionAPI) *ProjectTransactions {
	return &ProjectTransactions{
		c:        c,
		accounts: accounts,
		repo:     repo,
		Create: newAction(c, accounts,
			func(ctx context.Context, acc string, in ProjectTransactionCreate) (core.ProjectTransaction, error) {
				return repo.Create(ctx, acc, in.ProjectID, in.Input)
			}, projectScoped[ProjectTransactionCreate, core.ProjectTransaction](func(in ProjectTransactionCreate) string { return in.ProjectID })),
		Update: newAction(c, accounts,
			func(ctx context.Context, acc string, in ProjectTransactionUpdate) (core.ProjectTransaction, error) {
				return repo.Update(ctx, acc, in.ProjectID, in.ID, in.Input)
			}, projectScoped[ProjectTransactionUpdate, core.ProjectTransaction](func(in ProjectTransactionUpdate) string { return in.ProjectID })),
		Delete: newAction(c, accounts,
			func(ctx context.Context, acc string, in ProjectTransactionRef) (Done, error) {
				return Done{}, repo.Delete(ctx, acc, in.ProjectID, in.ID)
			}, projectScoped[ProjectTransactionRef, Done](func(in ProjectTransactionRef) string { return in.ProjectID })),
	}
}

func projectTransactionKey(projectID string, f core.ListFilter) func(string) cache.Key {
	return func(acc string) cache.Key {
		return cache.Key{Kind: cache.KindProjectTransaction, AccountID: acc, Scope: projectID, Variant: f.Key()}
	}
}

func (p *ProjectTransactions) List(ctx context.Context, projectID string, f core.ListFilter) (core.Page[core.ProjectTransaction], error) {
	if err := (Ref{ID: projectID}).Validate(); err != nil {
		return core.Page[core.ProjectTransaction]{}, err
	}
	return fetchScoped(ctx, p.c, p.accounts, projectTransactionKey(projectID, f), func(ctx context.Context, acc string) (core.Page[core.ProjectTransaction], error) {
		return p.repo.List(ctx, acc, projectID, f)
	})
}

func (p *ProjectTransactions) Watch(projectID string, f core.ListFilter) (*cache.Observer[core.Page[core.ProjectTransaction]], error) {
	if err := (Ref{ID: projectID}).Validate(); err != nil {
		return nil, err
	}
	return observeScoped(p.c, p.accounts, projectTransactionKey(projectID, f), func(ctx context.Context, acc string) (core.Page[core.ProjectTransaction], error) {
		return p.repo.List(ctx, acc, projectID, f)
	})
}
