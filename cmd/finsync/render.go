package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/shopspring/decimal"

	"finsync/internal/core"
	"finsync/internal/session"
	"finsync/internal/transport"
	"finsync/internal/viewmodel"
)

const dateLayout = "2006-01-02"

// printMarkdown renders md for the terminal, falling back to the raw text
// when no renderer is available.
func printMarkdown(md string) {
	writeMarkdown(os.Stdout, md)
}

func writeMarkdown(w io.Writer, md string) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err == nil {
		if out, rerr := r.Render(md); rerr == nil {
			fmt.Fprint(w, out)
			return
		}
	}
	fmt.Fprint(w, md)
}

// table builds a markdown table. Pipes inside cells are escaped.
func table(header []string, rows [][]string) string {
	var b strings.Builder
	line := func(cells []string) {
		b.WriteString("|")
		for _, c := range cells {
			b.WriteString(" ")
			b.WriteString(strings.ReplaceAll(c, "|", `\|`))
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}
	line(header)
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}
	line(sep)
	for _, r := range rows {
		line(r)
	}
	return b.String()
}

func pageFooter(p core.Pagination) string {
	if p.TotalPage <= 1 {
		return ""
	}
	return fmt.Sprintf("\n_page %d of %d_\n", p.Page, p.TotalPage)
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return ""
}

func walletsMarkdown(page core.Page[core.Wallet]) string {
	rows := make([][]string, 0, len(page.Values))
	for _, w := range page.Values {
		rows = append(rows, []string{w.ID, w.Name, string(w.Type), money(w.Amount), yesNo(w.IsActive)})
	}
	return "## Wallets\n\n" + table([]string{"ID", "Name", "Type", "Balance", "Active"}, rows) + pageFooter(page.Pagination)
}

func transactionsMarkdown(page core.Page[core.Transaction]) string {
	rows := make([][]string, 0, len(page.Values))
	for _, t := range page.Values {
		amount := money(t.Amount)
		if t.Type == core.TransactionOut {
			amount = "-" + amount
		}
		names := make([]string, 0, len(t.Labels))
		for _, l := range t.Labels {
			names = append(names, l.Name)
		}
		rows = append(rows, []string{t.Date.Format(dateLayout), t.ID, t.WalletID, amount, t.Description, strings.Join(names, ", ")})
	}
	return "## Transactions\n\n" + table([]string{"Date", "ID", "Wallet", "Amount", "Description", "Labels"}, rows) + pageFooter(page.Pagination)
}

func labelsMarkdown(page core.Page[core.Label]) string {
	rows := make([][]string, 0, len(page.Values))
	for _, l := range page.Values {
		rows = append(rows, []string{l.ID, l.Name, l.Color, yesNo(l.IsArchived)})
	}
	return "## Labels\n\n" + table([]string{"ID", "Name", "Color", "Archived"}, rows) + pageFooter(page.Pagination)
}

func goalsMarkdown(page core.Page[core.Goal]) string {
	rows := make([][]string, 0, len(page.Values))
	for _, g := range page.Values {
		progress := "0%"
		if g.Amount.IsPositive() {
			progress = g.CurrentAmount.Div(g.Amount).Mul(decimal.NewFromInt(100)).StringFixed(0) + "%"
		}
		rows = append(rows, []string{g.ID, g.Name, money(g.CurrentAmount) + " / " + money(g.Amount), progress, g.EndingDate.Format(dateLayout)})
	}
	return "## Goals\n\n" + table([]string{"ID", "Name", "Saved", "Progress", "Ends"}, rows) + pageFooter(page.Pagination)
}

func projectsMarkdown(page core.Page[core.Project]) string {
	rows := make([][]string, 0, len(page.Values))
	for _, p := range page.Values {
		rows = append(rows, []string{p.ID, p.Name, money(p.InitialBudget), yesNo(p.IsArchived)})
	}
	return "## Projects\n\n" + table([]string{"ID", "Name", "Budget", "Archived"}, rows) + pageFooter(page.Pagination)
}

func statisticsMarkdown(p core.Project, s core.ProjectStatistics, costs []core.ProjectTransaction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", p.Name)
	b.WriteString(table([]string{"Budget", "Estimated", "Real", "Remaining", "Items"}, [][]string{{
		money(p.InitialBudget), money(s.TotalEstimatedCost), money(s.TotalRealCost), money(s.RemainingBudget), fmt.Sprint(s.TransactionCount),
	}}))
	if len(costs) == 0 {
		return b.String()
	}
	rows := make([][]string, 0, len(costs))
	for _, c := range costs {
		realCost := ""
		if c.RealCost != nil {
			realCost = money(*c.RealCost)
		}
		rows = append(rows, []string{c.ID, c.Name, money(c.EstimatedCost), realCost})
	}
	b.WriteString("\n### Items\n\n")
	b.WriteString(table([]string{"ID", "Name", "Estimated", "Real"}, rows))
	return b.String()
}

func overviewMarkdown(o viewmodel.Overview) string {
	sections := []string{
		walletsMarkdown(core.SinglePage(o.Wallets)),
		transactionsMarkdown(core.SinglePage(o.Transactions)),
		goalsMarkdown(core.SinglePage(o.Goals)),
		projectsMarkdown(core.SinglePage(o.Projects)),
		labelsMarkdown(core.SinglePage(o.Labels)),
	}
	return strings.Join(sections, "\n")
}

// describe turns a failure into one line for the terminal.
func describe(err error) string {
	var verr core.ValidationErrors
	switch {
	case errors.As(err, &verr):
		parts := make([]string, 0, len(verr))
		for _, f := range verr {
			parts = append(parts, f.Error())
		}
		return "invalid input: " + strings.Join(parts, "; ")
	case errors.Is(err, session.ErrNotAuthenticated):
		return "not signed in, run `finsync signin` first"
	case transport.IsNetwork(err):
		return "cannot reach the server, check your connection"
	case transport.IsUnauthorized(err):
		return "session expired, sign in again"
	}
	if code := transport.StatusCode(err); code != 0 {
		if msg := transport.Message(err); msg != "" {
			return msg
		}
		return fmt.Sprintf("request failed (%d)", code)
	}
	return err.Error()
}
