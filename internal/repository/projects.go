package repository

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"finsync/internal/core"
)

type Projects struct{ d Doer }

var _ ProjectAPI = (*Projects)(nil)

func (r *Projects) List(ctx context.Context, accountID string, f core.ListFilter) (core.Page[core.Project], error) {
	path, err := accountPath(accountID, "project")
	if err != nil {
		return core.Page[core.Project]{}, err
	}
	return list[core.Project](ctx, r.d, path, f.Query())
}

func (r *Projects) Get(ctx context.Context, accountID, id string) (core.Project, error) {
	path, err := accountPath(accountID, "project", id)
	if err != nil {
		return core.Project{}, err
	}
	return call[core.Project](ctx, r.d, http.MethodGet, path, nil)
}

func (r *Projects) Create(ctx context.Context, accountID string, in core.ProjectInput) (core.Project, error) {
	path, err := accountPath(accountID, "project")
	if err != nil {
		return core.Project{}, err
	}
	return call[core.Project](ctx, r.d, http.MethodPost, path, in)
}

func (r *Projects) Update(ctx context.Context, accountID, id string, in core.ProjectInput) (core.Project, error) {
	path, err := accountPath(accountID, "project", id)
	if err != nil {
		return core.Project{}, err
	}
	return call[core.Project](ctx, r.d, http.MethodPut, path, in)
}

func (r *Projects) Delete(ctx context.Context, accountID, id string) error {
	path, err := accountPath(accountID, "project", id)
	if err != nil {
		return err
	}
	return r.d.Do(ctx, http.MethodDelete, path, nil, nil, nil)
}

func (r *Projects) Archive(ctx context.Context, accountID, id string) error {
	path, err := accountPath(accountID, "project", id, "archive")
	if err != nil {
		return err
	}
	return r.d.Do(ctx, http.MethodPost, path, nil, nil, nil)
}

// Statistics returns the server-computed budget figures of a project.
func (r *Projects) Statistics(ctx context.Context, accountID, id string) (core.ProjectStatistics, error) {
	path, err := accountPath(accountID, "project", id, "statistics")
	if err != nil {
		return core.ProjectStatistics{}, err
	}
	return call[core.ProjectStatistics](ctx, r.d, http.MethodGet, path, nil)
}

// PDF streams a server-rendered report. The caller closes the reader.
func (r *Projects) PDF(ctx context.Context, accountID, id string, kind core.PDFKind) (io.ReadCloser, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("unknown pdf kind %q", kind)
	}
	path, err := accountPath(accountID, "project", id, "pdf", string(kind))
	if err != nil {
		return nil, err
	}
	body, _, err := r.d.Stream(ctx, path, nil)
	return body, err
}
