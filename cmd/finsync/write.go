package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"finsync/internal/app"
	"finsync/internal/cache"
	"finsync/internal/core"
	"finsync/internal/viewmodel"
)

// requireAmount parses a mandatory decimal flag.
func requireAmount(name, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, fmt.Errorf("-%s is required", name)
	}
	d, err := core.ParseAmount(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid -%s %q", name, s)
	}
	return d, nil
}

func splitIDs(s string) []string {
	if s == "" {
		return nil
	}
	var ids []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

type addWalletCmd struct {
	name        string
	description string
	kind        string
	color       string
}

func (*addWalletCmd) Name() string     { return "add-wallet" }
func (*addWalletCmd) Synopsis() string { return "create a wallet" }
func (*addWalletCmd) Usage() string {
	return "finsync add-wallet -name <name> [-type CASH|MOBILE_MONEY|BANK|DEBT] [-color #hex]\n"
}

func (c *addWalletCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "wallet name")
	f.StringVar(&c.description, "description", "", "description")
	f.StringVar(&c.kind, "type", string(core.WalletCash), "wallet type")
	f.StringVar(&c.color, "color", "", "display color")
}

func (c *addWalletCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return run(ctx, args, func(ctx context.Context, a *app.App) error {
		in := core.WalletInput{Name: c.name, Description: c.description, Type: core.WalletType(c.kind), Color: c.color}
		w, err := a.Models.Wallets.Create.Mutate(ctx, in, cache.Callbacks[core.Wallet]{})
		if err != nil {
			return err
		}
		fmt.Printf("Created wallet %s (%s).\n", w.Name, w.ID)
		return nil
	})
}

type addTransactionCmd struct {
	wallet      string
	kind        string
	amount      string
	date        string
	description string
	labels      string
}

func (*addTransactionCmd) Name() string     { return "add-transaction" }
func (*addTransactionCmd) Synopsis() string { return "record money coming in or going out of a wallet" }
func (*addTransactionCmd) Usage() string {
	return `finsync add-transaction -wallet <id> -type IN|OUT -amount <n> [-date yyyy-mm-dd] [-labels id,id]
`
}

func (c *addTransactionCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.wallet, "wallet", "", "wallet id")
	f.StringVar(&c.kind, "type", string(core.TransactionOut), "IN or OUT")
	f.StringVar(&c.amount, "amount", "", "amount")
	f.StringVar(&c.date, "date", "", "day of the transaction (defaults to today)")
	f.StringVar(&c.description, "description", "", "description")
	f.StringVar(&c.labels, "labels", "", "comma separated label ids")
}

func (c *addTransactionCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return run(ctx, args, func(ctx context.Context, a *app.App) error {
		amount, err := requireAmount("amount", c.amount)
		if err != nil {
			return err
		}
		date, err := parseDay(c.date)
		if err != nil {
			return err
		}
		if date.IsZero() {
			date = time.Now()
		}
		in := viewmodel.TransactionCreate{
			WalletID: c.wallet,
			Input: core.TransactionInput{
				Date:        date,
				Amount:      amount,
				Type:        core.TransactionType(c.kind),
				Description: c.description,
				LabelIDs:    splitIDs(c.labels),
			},
		}
		t, err := a.Models.Transactions.Create.Mutate(ctx, in, cache.Callbacks[core.Transaction]{})
		if err != nil {
			return err
		}
		fmt.Printf("Recorded transaction %s.\n", t.ID)
		return nil
	})
}

type deleteTransactionCmd struct {
	wallet string
}

func (*deleteTransactionCmd) Name() string     { return "delete-transaction" }
func (*deleteTransactionCmd) Synopsis() string { return "delete a transaction" }
func (*deleteTransactionCmd) Usage() string {
	return "finsync delete-transaction -wallet <id> <transaction-id>\n"
}

func (c *deleteTransactionCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.wallet, "wallet", "", "wallet id")
}

func (c *deleteTransactionCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	id := f.Arg(0)
	return run(ctx, args, func(ctx context.Context, a *app.App) error {
		_, err := a.Models.Transactions.Delete.Mutate(ctx, viewmodel.TransactionRef{WalletID: c.wallet, ID: id}, cache.Callbacks[viewmodel.Done]{})
		if err != nil {
			return err
		}
		fmt.Println("Deleted.")
		return nil
	})
}

type addLabelCmd struct {
	name  string
	color string
}

func (*addLabelCmd) Name() string     { return "add-label" }
func (*addLabelCmd) Synopsis() string { return "create a label" }
func (*addLabelCmd) Usage() string    { return "finsync add-label -name <name> [-color #hex]\n" }
func (c *addLabelCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "label name")
	f.StringVar(&c.color, "color", "", "display color")
}

func (c *addLabelCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return run(ctx, args, func(ctx context.Context, a *app.App) error {
		l, err := a.Models.Labels.Create.Mutate(ctx, core.LabelInput{Name: c.name, Color: c.color}, cache.Callbacks[core.Label]{})
		if err != nil {
			return err
		}
		fmt.Printf("Created label %s (%s).\n", l.Name, l.ID)
		return nil
	})
}

type archiveLabelCmd struct{}

func (*archiveLabelCmd) Name() string           { return "archive-label" }
func (*archiveLabelCmd) Synopsis() string       { return "hide a label from the default list" }
func (*archiveLabelCmd) Usage() string          { return "finsync archive-label <label-id>\n" }
func (*archiveLabelCmd) SetFlags(*flag.FlagSet) {}
func (*archiveLabelCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	id := f.Arg(0)
	return run(ctx, args, func(ctx context.Context, a *app.App) error {
		_, err := a.Models.Labels.Archive.Mutate(ctx, viewmodel.Ref{ID: id}, cache.Callbacks[viewmodel.Done]{})
		return err
	})
}

type addGoalCmd struct {
	wallet string
	name   string
	amount string
	start  string
	end    string
}

func (*addGoalCmd) Name() string     { return "add-goal" }
func (*addGoalCmd) Synopsis() string { return "set a savings goal on a wallet" }
func (*addGoalCmd) Usage() string {
	return "finsync add-goal -wallet <id> -name <name> -amount <n> -end yyyy-mm-dd [-start yyyy-mm-dd]\n"
}

func (c *addGoalCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.wallet, "wallet", "", "wallet id")
	f.StringVar(&c.name, "name", "", "goal name")
	f.StringVar(&c.amount, "amount", "", "target amount")
	f.StringVar(&c.start, "start", "", "first day (defaults to today)")
	f.StringVar(&c.end, "end", "", "last day")
}

func (c *addGoalCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return run(ctx, args, func(ctx context.Context, a *app.App) error {
		amount, err := requireAmount("amount", c.amount)
		if err != nil {
			return err
		}
		start, err := parseDay(c.start)
		if err != nil {
			return err
		}
		if start.IsZero() {
			start = time.Now()
		}
		end, err := parseDay(c.end)
		if err != nil {
			return err
		}
		in := viewmodel.GoalCreate{
			WalletID: c.wallet,
			Input:    core.GoalInput{Name: c.name, Amount: amount, StartingDate: start, EndingDate: end},
		}
		g, err := a.Models.Goals.Create.Mutate(ctx, in, cache.Callbacks[core.Goal]{})
		if err != nil {
			return err
		}
		fmt.Printf("Created goal %s (%s).\n", g.Name, g.ID)
		return nil
	})
}

type addProjectCmd struct {
	name        string
	description string
	budget      string
}

func (*addProjectCmd) Name() string     { return "add-project" }
func (*addProjectCmd) Synopsis() string { return "create a budgeted project" }
func (*addProjectCmd) Usage() string {
	return "finsync add-project -name <name> -budget <n> [-description text]\n"
}

func (c *addProjectCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "project name")
	f.StringVar(&c.description, "description", "", "description")
	f.StringVar(&c.budget, "budget", "0", "initial budget")
}

func (c *addProjectCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return run(ctx, args, func(ctx context.Context, a *app.App) error {
		budget, err := requireAmount("budget", c.budget)
		if err != nil {
			return err
		}
		in := core.ProjectInput{Name: c.name, Description: c.description, InitialBudget: budget}
		p, err := a.Models.Projects.Create.Mutate(ctx, in, cache.Callbacks[core.Project]{})
		if err != nil {
			return err
		}
		fmt.Printf("Created project %s (%s).\n", p.Name, p.ID)
		return nil
	})
}

type addCostCmd struct {
	project   string
	name      string
	estimated string
	real      string
}

func (*addCostCmd) Name() string     { return "add-cost" }
func (*addCostCmd) Synopsis() string { return "add a cost line to a project" }
func (*addCostCmd) Usage() string {
	return "finsync add-cost -project <id> -name <name> -estimated <n> [-real <n>]\n"
}

func (c *addCostCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.project, "project", "", "project id")
	f.StringVar(&c.name, "name", "", "item name")
	f.StringVar(&c.estimated, "estimated", "", "estimated cost")
	f.StringVar(&c.real, "real", "", "real cost, once known")
}

func (c *addCostCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return run(ctx, args, func(ctx context.Context, a *app.App) error {
		estimated, err := requireAmount("estimated", c.estimated)
		if err != nil {
			return err
		}
		realCost, err := parseAmount(c.real)
		if err != nil {
			return err
		}
		in := viewmodel.ProjectTransactionCreate{
			ProjectID: c.project,
			Input:     core.ProjectTransactionInput{Name: c.name, EstimatedCost: estimated, RealCost: realCost},
		}
		pt, err := a.Models.ProjectTransactions.Create.Mutate(ctx, in, cache.Callbacks[core.ProjectTransaction]{})
		if err != nil {
			return err
		}
		fmt.Printf("Added %s (%s).\n", pt.Name, pt.ID)
		return nil
	})
}

type exportCmd struct {
	kind string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "download a project report as PDF" }
func (*exportCmd) Usage() string {
	return `finsync export [-kind statistics|invoice|summary] <project-id>

  The report is written to FINSYNC_EXPORT_DIR, or uploaded to
  FINSYNC_GCS_BUCKET when one is configured.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.kind, "kind", string(core.PDFSummary), "report kind")
}

func (c *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	id := f.Arg(0)
	return run(ctx, args, func(ctx context.Context, a *app.App) error {
		loc, err := a.Exporter.ProjectPDF(ctx, id, core.PDFKind(c.kind))
		if err != nil {
			return err
		}
		fmt.Println(loc)
		return nil
	})
}
