package viewmodel

import (
	"context"

	"golang.org/x/sync/errgroup"

	"finsync/internal/core"
)

// RecentTransactions is the page size of the dashboard's transaction list.
const RecentTransactions = 10

// Overview is everything the home screen shows.
type Overview struct {
	Wallets      []core.Wallet
	Labels       []core.Label
	Goals        []core.Goal
	Projects     []core.Project
	Transactions []core.Transaction
}

// Dashboard loads the top-level lists together.
type Dashboard struct {
	wallets      *Wallets
	labels       *Labels
	goals        *Goals
	projects     *Projects
	transactions *Transactions
}

func NewDashboard(w *Wallets, l *Labels, g *Goals, p *Projects, t *Transactions) *Dashboard {
	return &Dashboard{wallets: w, labels: l, goals: g, projects: p, transactions: t}
}

func recentFilter() core.TransactionFilter {
	return core.TransactionFilter{Sort: core.SortDesc, Page: 1, PageSize: RecentTransactions}
}

// Load reads all lists in parallel through the cache. The first failure
// cancels the rest.
func (d *Dashboard) Load(ctx context.Context) (Overview, error) {
	var o Overview
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := d.wallets.List(ctx, core.ListFilter{})
		o.Wallets = p.Values
		return err
	})
	g.Go(func() error {
		p, err := d.labels.List(ctx, core.ListFilter{})
		o.Labels = p.Values
		return err
	})
	g.Go(func() error {
		p, err := d.goals.List(ctx, core.ListFilter{})
		o.Goals = p.Values
		return err
	})
	g.Go(func() error {
		p, err := d.projects.List(ctx, core.ListFilter{})
		o.Projects = p.Values
		return err
	})
	g.Go(func() error {
		p, err := d.transactions.List(ctx, recentFilter())
		o.Transactions = p.Values
		return err
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return o, nil
}

// Prefetch warms the cache for the dashboard lists.
func (d *Dashboard) Prefetch(ctx context.Context) error {
	_, err := d.Load(ctx)
	return err
}
