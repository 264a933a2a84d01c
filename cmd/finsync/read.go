package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"finsync/internal/app"
	"finsync/internal/core"
)

// listFlags are shared by the plain list commands.
type listFlags struct {
	page     int
	pageSize int
	archived bool
	sort     string
}

func (l *listFlags) set(f *flag.FlagSet, archivable bool) {
	f.IntVar(&l.page, "page", 0, "page number, starting at 1")
	f.IntVar(&l.pageSize, "size", 0, "page size; 0 lists everything")
	f.StringVar(&l.sort, "sort", "", "sort order (asc, desc)")
	if archivable {
		f.BoolVar(&l.archived, "archived", false, "include archived entries")
	}
}

func (l *listFlags) filter() core.ListFilter {
	return core.ListFilter{Page: l.page, PageSize: l.pageSize, Sort: core.SortOrder(l.sort), IncludeArchived: l.archived}
}

type dashboardCmd struct{}

func (*dashboardCmd) Name() string           { return "dashboard" }
func (*dashboardCmd) Synopsis() string       { return "show wallets, recent transactions, goals and projects" }
func (*dashboardCmd) Usage() string          { return "finsync dashboard\n" }
func (*dashboardCmd) SetFlags(*flag.FlagSet) {}
func (*dashboardCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return run(ctx, args, func(ctx context.Context, a *app.App) error {
		o, err := a.Models.Dashboard.Load(ctx)
		if err != nil {
			return err
		}
		printMarkdown(overviewMarkdown(o))
		return nil
	})
}

type walletsCmd struct{ list listFlags }

func (*walletsCmd) Name() string     { return "wallets" }
func (*walletsCmd) Synopsis() string { return "list wallets with their balances" }
func (*walletsCmd) Usage() string    { return "finsync wallets [-page n -size n]\n" }
func (c *walletsCmd) SetFlags(f *flag.FlagSet) {
	c.list.set(f, false)
}

func (c *walletsCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return run(ctx, args, func(ctx context.Context, a *app.App) error {
		page, err := a.Models.Wallets.List(ctx, c.list.filter())
		if err != nil {
			return err
		}
		printMarkdown(walletsMarkdown(page))
		return nil
	})
}

type transactionsCmd struct {
	wallet   string
	kind     string
	from     string
	to       string
	min      string
	max      string
	sort     string
	page     int
	pageSize int
}

func (*transactionsCmd) Name() string     { return "transactions" }
func (*transactionsCmd) Synopsis() string { return "list transactions" }
func (*transactionsCmd) Usage() string {
	return `finsync transactions [-wallet id] [-type IN|OUT] [-from yyyy-mm-dd] [-to yyyy-mm-dd] [-min n] [-max n]
`
}

func (c *transactionsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.wallet, "wallet", "", "only this wallet")
	f.StringVar(&c.kind, "type", "", "IN or OUT")
	f.StringVar(&c.from, "from", "", "first day (yyyy-mm-dd)")
	f.StringVar(&c.to, "to", "", "last day (yyyy-mm-dd)")
	f.StringVar(&c.min, "min", "", "minimum amount")
	f.StringVar(&c.max, "max", "", "maximum amount")
	f.StringVar(&c.sort, "sort", "", "date order (asc, desc)")
	f.IntVar(&c.page, "page", 0, "page number, starting at 1")
	f.IntVar(&c.pageSize, "size", 0, "page size; 0 lists everything")
}

func (c *transactionsCmd) filter() (core.TransactionFilter, error) {
	f := core.TransactionFilter{
		Type:     core.TransactionType(c.kind),
		WalletID: c.wallet,
		Sort:     core.SortOrder(c.sort),
		Page:     c.page,
		PageSize: c.pageSize,
	}
	var err error
	if f.From, err = parseDay(c.from); err != nil {
		return f, err
	}
	if f.To, err = parseDay(c.to); err != nil {
		return f, err
	}
	if f.MinAmount, err = parseAmount(c.min); err != nil {
		return f, err
	}
	if f.MaxAmount, err = parseAmount(c.max); err != nil {
		return f, err
	}
	return f, nil
}

func (c *transactionsCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return run(ctx, args, func(ctx context.Context, a *app.App) error {
		f, err := c.filter()
		if err != nil {
			return err
		}
		page, err := a.Models.Transactions.List(ctx, f)
		if err != nil {
			return err
		}
		printMarkdown(transactionsMarkdown(page))
		return nil
	})
}

type labelsCmd struct{ list listFlags }

func (*labelsCmd) Name() string               { return "labels" }
func (*labelsCmd) Synopsis() string           { return "list labels" }
func (*labelsCmd) Usage() string              { return "finsync labels [-archived]\n" }
func (c *labelsCmd) SetFlags(f *flag.FlagSet) { c.list.set(f, true) }
func (c *labelsCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return run(ctx, args, func(ctx context.Context, a *app.App) error {
		page, err := a.Models.Labels.List(ctx, c.list.filter())
		if err != nil {
			return err
		}
		printMarkdown(labelsMarkdown(page))
		return nil
	})
}

type goalsCmd struct{ list listFlags }

func (*goalsCmd) Name() string               { return "goals" }
func (*goalsCmd) Synopsis() string           { return "list savings goals and their progress" }
func (*goalsCmd) Usage() string              { return "finsync goals [-archived]\n" }
func (c *goalsCmd) SetFlags(f *flag.FlagSet) { c.list.set(f, true) }
func (c *goalsCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return run(ctx, args, func(ctx context.Context, a *app.App) error {
		page, err := a.Models.Goals.List(ctx, c.list.filter())
		if err != nil {
			return err
		}
		printMarkdown(goalsMarkdown(page))
		return nil
	})
}

type projectsCmd struct{ list listFlags }

func (*projectsCmd) Name() string               { return "projects" }
func (*projectsCmd) Synopsis() string           { return "list projects" }
func (*projectsCmd) Usage() string              { return "finsync projects [-archived]\n" }
func (c *projectsCmd) SetFlags(f *flag.FlagSet) { c.list.set(f, true) }
func (c *projectsCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return run(ctx, args, func(ctx context.Context, a *app.App) error {
		page, err := a.Models.Projects.List(ctx, c.list.filter())
		if err != nil {
			return err
		}
		printMarkdown(projectsMarkdown(page))
		return nil
	})
}

type statsCmd struct{}

func (*statsCmd) Name() string           { return "stats" }
func (*statsCmd) Synopsis() string       { return "show a project's budget statistics and items" }
func (*statsCmd) Usage() string          { return "finsync stats <project-id>\n" }
func (*statsCmd) SetFlags(*flag.FlagSet) {}
func (*statsCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	id := f.Arg(0)
	return run(ctx, args, func(ctx context.Context, a *app.App) error {
		p, err := a.Models.Projects.Get(ctx, id)
		if err != nil {
			return err
		}
		s, err := a.Models.Projects.Statistics(ctx, id)
		if err != nil {
			return err
		}
		items, err := a.Models.ProjectTransactions.List(ctx, id, core.ListFilter{})
		if err != nil {
			return err
		}
		printMarkdown(statisticsMarkdown(p, s, items.Values))
		return nil
	})
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want yyyy-mm-dd", s)
	}
	return t, nil
}

func parseAmount(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := core.ParseAmount(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return &d, nil
}
