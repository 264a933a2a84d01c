package main

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finsync/internal/core"
	"finsync/internal/session"
	"finsync/internal/viewmodel"
)

func TestTable(t *testing.T) {
	got := table([]string{"A", "B"}, [][]string{{"1", "x|y"}})
	assert.Equal(t, "| A | B |\n| --- | --- |\n| 1 | x\\|y |\n", got)
}

func TestWalletsMarkdown(t *testing.T) {
	page := core.SinglePage([]core.Wallet{
		{ID: "w1", Name: "Cash", Type: core.WalletCash, Amount: decimal.RequireFromString("-50"), IsActive: true},
	})
	md := walletsMarkdown(page)
	assert.Contains(t, md, "| w1 | Cash | CASH | -50.00 | yes |")
	assert.NotContains(t, md, "_page")

	page.Pagination = core.Pagination{Page: 2, TotalPage: 3}
	assert.Contains(t, walletsMarkdown(page), "_page 2 of 3_")
}

func TestTransactionsMarkdownSignsOutflows(t *testing.T) {
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	page := core.SinglePage([]core.Transaction{
		{ID: "t1", Date: day, Amount: decimal.NewFromInt(12), Type: core.TransactionOut, WalletID: "w1",
			Labels: []core.Label{{Name: "food"}, {Name: "weekly"}}},
		{ID: "t2", Date: day, Amount: decimal.NewFromInt(100), Type: core.TransactionIn, WalletID: "w1"},
	})
	md := transactionsMarkdown(page)
	assert.Contains(t, md, "| 2024-05-01 | t1 | w1 | -12.00 |  | food, weekly |")
	assert.Contains(t, md, "| 2024-05-01 | t2 | w1 | 100.00 |")
}

func TestGoalsMarkdownProgress(t *testing.T) {
	page := core.SinglePage([]core.Goal{
		{ID: "g1", Name: "Bike", Amount: decimal.NewFromInt(400), CurrentAmount: decimal.NewFromInt(100)},
		{ID: "g2", Name: "Empty", Amount: decimal.Zero, CurrentAmount: decimal.Zero},
	})
	md := goalsMarkdown(page)
	assert.Contains(t, md, "| g1 | Bike | 100.00 / 400.00 | 25% |")
	assert.Contains(t, md, "| g2 | Empty | 0.00 / 0.00 | 0% |")
}

func TestStatisticsMarkdown(t *testing.T) {
	realCost := decimal.NewFromInt(80)
	md := statisticsMarkdown(
		core.Project{Name: "Roof", InitialBudget: decimal.NewFromInt(500)},
		core.ProjectStatistics{TotalEstimatedCost: decimal.NewFromInt(100), TotalRealCost: realCost, RemainingBudget: decimal.NewFromInt(420), TransactionCount: 2},
		[]core.ProjectTransaction{
			{ID: "pt1", Name: "Tiles", EstimatedCost: decimal.NewFromInt(60), RealCost: &realCost},
			{ID: "pt2", Name: "Nails", EstimatedCost: decimal.NewFromInt(40)},
		},
	)
	assert.True(t, strings.HasPrefix(md, "## Roof\n"))
	assert.Contains(t, md, "| 500.00 | 100.00 | 80.00 | 420.00 | 2 |")
	assert.Contains(t, md, "| pt1 | Tiles | 60.00 | 80.00 |")
	assert.Contains(t, md, "| pt2 | Nails | 40.00 |  |")
}

func TestOverviewMarkdownHasEverySection(t *testing.T) {
	md := overviewMarkdown(viewmodel.Overview{})
	for _, h := range []string{"## Wallets", "## Transactions", "## Goals", "## Projects", "## Labels"} {
		assert.Contains(t, md, h)
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"validation", core.ValidationErrors{{Field: "name", Kind: core.ErrRequired}}, "invalid input: name: required"},
		{"no session", fmt.Errorf("list wallets: %w", session.ErrNotAuthenticated), "not signed in, run `finsync signin` first"},
		{"other", errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, describe(tt.err))
		})
	}
}

func TestTransactionFilterFlags(t *testing.T) {
	c := &transactionsCmd{kind: "OUT", from: "2024-01-01", to: "2024-01-31", min: "10.5"}
	f, err := c.filter()
	require.NoError(t, err)
	assert.Equal(t, core.TransactionOut, f.Type)
	assert.Equal(t, 2024, f.From.Year())
	assert.Equal(t, time.January, f.To.Month())
	require.NotNil(t, f.MinAmount)
	assert.Equal(t, "10.5", f.MinAmount.String())
	assert.Nil(t, f.MaxAmount)

	_, err = (&transactionsCmd{from: "01/02/2024"}).filter()
	assert.ErrorContains(t, err, "invalid date")
	_, err = (&transactionsCmd{max: "lots"}).filter()
	assert.ErrorContains(t, err, "invalid amount")
}

func TestSplitIDs(t *testing.T) {
	assert.Nil(t, splitIDs(""))
	assert.Equal(t, []string{"a", "b"}, splitIDs(" a, ,b "))
}

func TestRequireAmount(t *testing.T) {
	_, err := requireAmount("amount", "")
	assert.ErrorContains(t, err, "-amount is required")
	d, err := requireAmount("amount", "12.30")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("12.3")))
}
