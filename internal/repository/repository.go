// Package repository maps typed entity intents onto backend calls. It holds
// no cache and performs no validation; it only composes account-scoped paths
// and normalizes list envelopes.
package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"finsync/internal/core"
)

// ErrMissingAccount is returned when a scoped call is made without an
// account id.
var ErrMissingAccount = errors.New("account id is required")

// Doer is the transport surface the repositories need.
type Doer interface {
	Do(ctx context.Context, method, path string, query url.Values, body, out any) error
	Stream(ctx context.Context, path string, query url.Values) (io.ReadCloser, string, error)
}

// Ports consumed by the view-models.
type (
	AuthAPI interface {
		SignIn(ctx context.Context, creds core.Credentials) (core.AuthResult, error)
		SignUp(ctx context.Context, in core.SignUpInput) (core.AuthResult, error)
	}

	WalletAPI interface {
		List(ctx context.Context, accountID string, f core.ListFilter) (core.Page[core.Wallet], error)
		Create(ctx context.Context, accountID string, in core.WalletInput) (core.Wallet, error)
		Update(ctx context.Context, accountID, id string, in core.WalletInput) (core.Wallet, error)
		UpdateAutomaticIncome(ctx context.Context, accountID, id string, in core.AutomaticIncomeInput) (core.Wallet, error)
	}

	TransactionAPI interface {
		List(ctx context.Context, accountID string, f core.TransactionFilter) (core.Page[core.Transaction], error)
		Create(ctx context.Context, accountID, walletID string, in core.TransactionInput) (core.Transaction, error)
		Update(ctx context.Context, accountID, walletID, id string, in core.TransactionInput) (core.Transaction, error)
		Delete(ctx context.Context, accountID, walletID, id string) error
	}

	LabelAPI interface {
		List(ctx context.Context, accountID string, f core.ListFilter) (core.Page[core.Label], error)
		Create(ctx context.Context, accountID string, in core.LabelInput) (core.Label, error)
		Update(ctx context.Context, accountID, id string, in core.LabelInput) (core.Label, error)
		Archive(ctx context.Context, accountID, id string) error
	}

	GoalAPI interface {
		List(ctx context.Context, accountID string, f core.ListFilter) (core.Page[core.Goal], error)
		Create(ctx context.Context, accountID, walletID string, in core.GoalInput) (core.Goal, error)
		Update(ctx context.Context, accountID, walletID, id string, in core.GoalInput) (core.Goal, error)
		Archive(ctx context.Context, accountID, id string) error
	}

	ProjectAPI interface {
		List(ctx context.Context, accountID string, f core.ListFilter) (core.Page[core.Project], error)
		Get(ctx context.Context, accountID, id string) (core.Project, error)
		Create(ctx context.Context, accountID string, in core.ProjectInput) (core.Project, error)
		Update(ctx context.Context, accountID, id string, in core.ProjectInput) (core.Project, error)
		Delete(ctx context.Context, accountID, id string) error
		Archive(ctx context.Context, accountID, id string) error
		Statistics(ctx context.Context, accountID, id string) (core.ProjectStatistics, error)
		PDF(ctx context.Context, accountID, id string, kind core.PDFKind) (io.ReadCloser, error)
	}

	ProjectTransactionAPI interface {
		List(ctx context.Context, accountID, projectID string, f core.ListFilter) (core.Page[core.ProjectTransaction], error)
		Create(ctx context.Context, accountID, projectID string, in core.ProjectTransactionInput) (core.ProjectTransaction, error)
		Update(ctx context.Context, accountID, projectID, id string, in core.ProjectTransactionInput) (core.ProjectTransaction, error)
		Delete(ctx context.Context, accountID, projectID, id string) error
	}
)

// Repositories bundles one repository per entity kind over a shared Doer.
type Repositories struct {
	Auth                *Auth
	Wallets             *Wallets
	Transactions        *Transactions
	Labels              *Labels
	Goals               *Goals
	Projects            *Projects
	ProjectTransactions *ProjectTransactions
}

func New(d Doer) *Repositories {
	return &Repositories{
		Auth:                &Auth{d: d},
		Wallets:             &Wallets{d: d},
		Transactions:        &Transactions{d: d},
		Labels:              &Labels{d: d},
		Goals:               &Goals{d: d},
		Projects:            &Projects{d: d},
		ProjectTransactions: &ProjectTransactions{d: d},
	}
}

// accountPath builds /account/{accountID}/seg/seg..., escaping each segment.
func accountPath(accountID string, segments ...string) (string, error) {
	if accountID == "" {
		return "", ErrMissingAccount
	}
	var b strings.Builder
	b.WriteString("/account/")
	b.WriteString(url.PathEscape(accountID))
	for _, s := range segments {
		if s == "" {
			return "", fmt.Errorf("empty path segment after %q", b.String())
		}
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String(), nil
}

// list fetches a collection and normalizes either a bare array or a
// pagination envelope into core.Page.
func list[T any](ctx context.Context, d Doer, path string, query url.Values) (core.Page[T], error) {
	var raw json.RawMessage
	if err := d.Do(ctx, http.MethodGet, path, query, nil, &raw); err != nil {
		return core.Page[T]{}, err
	}
	return decodePage[T](raw)
}

func decodePage[T any](raw json.RawMessage) (core.Page[T], error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return core.SinglePage[T](nil), nil
	}
	if trimmed[0] == '[' {
		var values []T
		if err := json.Unmarshal(trimmed, &values); err != nil {
			return core.Page[T]{}, fmt.Errorf("decode list: %w", err)
		}
		return core.SinglePage(values), nil
	}
	var page core.Page[T]
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return core.Page[T]{}, fmt.Errorf("decode page: %w", err)
	}
	if page.Values == nil {
		page.Values = []T{}
	}
	return page, nil
}

func call[T any](ctx context.Context, d Doer, method, path string, body any) (T, error) {
	var out T
	err := d.Do(ctx, method, path, nil, body, &out)
	return out, err
}
