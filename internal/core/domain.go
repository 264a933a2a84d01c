package core

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// The backend exchanges amounts as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

const (
	WalletCash        WalletType = "CASH"
	WalletMobileMoney WalletType = "MOBILE_MONEY"
	WalletBank        WalletType = "BANK"
	WalletDebt        WalletType = "DEBT"

	IncomeNotSpecified IncomeType = "NOT_SPECIFIED"
	IncomeMensual      IncomeType = "MENSUAL"

	TransactionIn  TransactionType = "IN"
	TransactionOut TransactionType = "OUT"

	PDFStatistics PDFKind = "statistics"
	PDFInvoice    PDFKind = "invoice"
	PDFSummary    PDFKind = "summary"
)

type (
	WalletType      string
	IncomeType      string
	TransactionType string
	PDFKind         string

	Account struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}

	// AuthResult is the sign-in / sign-up response body.
	AuthResult struct {
		Account Account `json:"account"`
		Token   string  `json:"token"`
	}

	Session struct {
		Token     string
		AccountID string
		Username  string
	}

	AutomaticIncome struct {
		Amount     decimal.Decimal `json:"amount"`
		PaymentDay int             `json:"paymentDay"`
		Type       IncomeType      `json:"type"`
	}

	Wallet struct {
		ID              string           `json:"id"`
		Name            string           `json:"name"`
		Description     string           `json:"description"`
		Type            WalletType       `json:"type"`
		Amount          decimal.Decimal  `json:"amount"` // server computed balance
		IsActive        bool             `json:"isActive"`
		Color           string           `json:"color"`
		IconRef         string           `json:"iconRef"`
		AutomaticIncome *AutomaticIncome `json:"automaticIncome,omitempty"`
	}

	Label struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		Color      string `json:"color"`
		IconRef    string `json:"iconRef,omitempty"`
		IsArchived bool   `json:"isArchived,omitempty"`
	}

	Transaction struct {
		ID          string          `json:"id"`
		Date        time.Time       `json:"date"`
		Amount      decimal.Decimal `json:"amount"`
		Type        TransactionType `json:"type"`
		Description string          `json:"description"`
		WalletID    string          `json:"walletId"`
		AccountID   string          `json:"accountId"`
		Labels      []Label         `json:"labels"`
	}

	Goal struct {
		ID            string          `json:"id"`
		Name          string          `json:"name"`
		Amount        decimal.Decimal `json:"amount"`
		CurrentAmount decimal.Decimal `json:"currentAmount"`
		StartingDate  time.Time       `json:"startingDate"`
		EndingDate    time.Time       `json:"endingDate"`
		Color         string          `json:"color"`
		IconRef       string          `json:"iconRef"`
		WalletID      string          `json:"walletId"`
		AccountID     string          `json:"accountId"`
		IsArchived    bool            `json:"isArchived,omitempty"`
	}

	Project struct {
		ID            string          `json:"id"`
		Name          string          `json:"name"`
		Description   string          `json:"description"`
		InitialBudget decimal.Decimal `json:"initialBudget"`
		Color         string          `json:"color"`
		IconRef       string          `json:"iconRef"`
		IsArchived    bool            `json:"isArchived"`
		AccountID     string          `json:"accountId"`
	}

	ProjectStatistics struct {
		TotalEstimatedCost decimal.Decimal `json:"totalEstimatedCost"`
		TotalRealCost      decimal.Decimal `json:"totalRealCost"`
		RemainingBudget    decimal.Decimal `json:"remainingBudget"`
		TransactionCount   int             `json:"transactionCount"`
	}

	ProjectTransaction struct {
		ID            string           `json:"id"`
		ProjectID     string           `json:"projectId"`
		AccountID     string           `json:"accountId"`
		Name          string           `json:"name"`
		Description   string           `json:"description"`
		EstimatedCost decimal.Decimal  `json:"estimatedCost"`
		RealCost      *decimal.Decimal `json:"realCost,omitempty"`
	}
)

func (t WalletType) IsValid() bool {
	switch t {
	case WalletCash, WalletMobileMoney, WalletBank, WalletDebt:
		return true
	}
	return false
}

func (t IncomeType) IsValid() bool {
	return t == IncomeNotSpecified || t == IncomeMensual
}

func (t TransactionType) IsValid() bool {
	return t == TransactionIn || t == TransactionOut
}

func (k PDFKind) IsValid() bool {
	switch k {
	case PDFStatistics, PDFInvoice, PDFSummary:
		return true
	}
	return false
}

// Signed returns the amount with the sign implied by the transaction type.
func (t Transaction) Signed() decimal.Decimal {
	if t.Type == TransactionOut {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Progress returns CurrentAmount/Amount clamped to [0, 1].
func (g Goal) Progress() decimal.Decimal {
	if !g.Amount.IsPositive() {
		return decimal.Zero
	}
	p := g.CurrentAmount.Div(g.Amount)
	if p.IsNegative() {
		return decimal.Zero
	}
	if p.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return p
}

// Cost returns the real cost when known, the estimate otherwise.
func (pt ProjectTransaction) Cost() decimal.Decimal {
	if pt.RealCost != nil {
		return *pt.RealCost
	}
	return pt.EstimatedCost
}
