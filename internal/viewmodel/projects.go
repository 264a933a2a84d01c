package viewmodel

import (
	"context"
	"io"

	"finsync/internal/cache"
	"finsync/internal/core"
	"finsync/internal/repository"
)

type ProjectUpdate struct {
	ID    string
	Input core.ProjectInput
}

func (u ProjectUpdate) Validate() error { return requireIDs(u.Input, field{"id", u.ID}) }

type Projects struct {
	c        *cache.Coordinator
	accounts AccountSource
	repo     repository.ProjectAPI

	Create  *Action[core.ProjectInput, core.Project]
	Update  *Action[ProjectUpdate, core.Project]
	Delete  *Action[Ref, Done]
	Archive *Action[Ref, Done]
}

// projectEffects invalidates project lists and the statistics of the
// project that was written.
func projectEffects[In, Out any](id func(In, Out) string) func(string, In, Out) []cache.Target {
	return func(acc string, in In, out Out) []cache.Target {
		return cache.Dependents(cache.KindProject, acc, id(in, out))
	}
}

func NewProjects(c *cache.Coordinator, accounts AccountSource, repo repository.ProjectAPI) *Projects {
	refID := func(r Ref, _ Done) string { return r.ID }
	return &Projects{
		c:        c,
		accounts: accounts,
		repo:     repo,
		Create: newAction(c, accounts,
			func(ctx context.Context, acc string, in core.ProjectInput) (core.Project, error) {
				return repo.Create(ctx, acc, in)
			}, projectEffects(func(_ core.ProjectInput, p core.Project) string { return p.ID })),
		Update: newAction(c, accounts,
			func(ctx context.Context, acc string, in ProjectUpdate) (core.Project, error) {
				return repo.Update(ctx, acc, in.ID, in.Input)
			}, projectEffects(func(in ProjectUpdate, _ core.Project) string { return in.ID })),
		Delete: newAction(c, accounts,
			func(ctx context.Context, acc string, in Ref) (Done, error) {
				return Done{}, repo.Delete(ctx, acc, in.ID)
			}, projectEffects(refID)),
		Archive: newAction(c, accounts,
			func(ctx context.Context, acc string, in Ref) (Done, error) {
				return Done{}, repo.Archive(ctx, acc, in.ID)
			}, projectEffects(refID)),
	}
}

func projectListKey(f core.ListFilter) func(string) cache.Key {
	return func(acc string) cache.Key {
		return cache.Key{Kind: cache.KindProject, AccountID: acc, Variant: f.Key()}
	}
}

func projectKey(id string) func(string) cache.Key {
	return func(acc string) cache.Key {
		return cache.Key{Kind: cache.KindProject, AccountID: acc, Scope: id, Variant: "detail"}
	}
}

func statisticsKey(id string) func(string) cache.Key {
	return func(acc string) cache.Key {
		return cache.Key{Kind: cache.KindProjectStatistics, AccountID: acc, Scope: id}
	}
}

func (p *Projects) List(ctx context.Context, f core.ListFilter) (core.Page[core.Project], error) {
	return fetchScoped(ctx, p.c, p.accounts, projectListKey(f), func(ctx context.Context, acc string) (core.Page[core.Project], error) {
		return p.repo.List(ctx, acc, f)
	})
}

func (p *Projects) Watch(f core.ListFilter) (*cache.Observer[core.Page[core.Project]], error) {
	return observeScoped(p.c, p.accounts, projectListKey(f), func(ctx context.Context, acc string) (core.Page[core.Project], error) {
		return p.repo.List(ctx, acc, f)
	})
}

func (p *Projects) Get(ctx context.Context, id string) (core.Project, error) {
	if err := (Ref{ID: id}).Validate(); err != nil {
		return core.Project{}, err
	}
	return fetchScoped(ctx, p.c, p.accounts, projectKey(id), func(ctx context.Context, acc string) (core.Project, error) {
		return p.repo.Get(ctx, acc, id)
	})
}

func (p *Projects) Statistics(ctx context.Context, id string) (core.ProjectStatistics, error) {
	if err := (Ref{ID: id}).Validate(); err != nil {
		return core.ProjectStatistics{}, err
	}
	return fetchScoped(ctx, p.c, p.accounts, statisticsKey(id), func(ctx context.Context, acc string) (core.ProjectStatistics, error) {
		return p.repo.Statistics(ctx, acc, id)
	})
}

func (p *Projects) WatchStatistics(id string) (*cache.Observer[core.ProjectStatistics], error) {
	if err := (Ref{ID: id}).Validate(); err != nil {
		return nil, err
	}
	return observeScoped(p.c, p.accounts, statisticsKey(id), func(ctx context.Context, acc string) (core.ProjectStatistics, error) {
		return p.repo.Statistics(ctx, acc, id)
	})
}

// PDF streams a report; it bypasses the cache.
func (p *Projects) PDF(ctx context.Context, id string, kind core.PDFKind) (io.ReadCloser, error) {
	acc, err := p.accounts.AccountID()
	if err != nil {
		return nil, err
	}
	return p.repo.PDF(ctx, acc, id, kind)
}
