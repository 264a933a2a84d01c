package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Form inputs. Each is the request body of the matching create/update call
// and carries its own Validate, run by the view-models before any network
// call is made.
type (
	Credentials struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	SignUpInput struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	WalletInput struct {
		Name        string     `json:"name"`
		Description string     `json:"description"`
		Type        WalletType `json:"type"`
		Color       string     `json:"color"`
		IconRef     string     `json:"iconRef"`
		IsActive    *bool      `json:"isActive,omitempty"`
	}

	AutomaticIncomeInput struct {
		Amount     decimal.Decimal `json:"amount"`
		PaymentDay int             `json:"paymentDay"`
		Type       IncomeType      `json:"type"`
	}

	TransactionInput struct {
		Date        time.Time       `json:"date"`
		Amount      decimal.Decimal `json:"amount"`
		Type        TransactionType `json:"type"`
		Description string          `json:"description"`
		LabelIDs    []string        `json:"labels"`
	}

	LabelInput struct {
		Name    string `json:"name"`
		Color   string `json:"color"`
		IconRef string `json:"iconRef,omitempty"`
	}

	GoalInput struct {
		Name         string          `json:"name"`
		Amount       decimal.Decimal `json:"amount"`
		StartingDate time.Time       `json:"startingDate"`
		EndingDate   time.Time       `json:"endingDate"`
		Color        string          `json:"color"`
		IconRef      string          `json:"iconRef"`
	}

	ProjectInput struct {
		Name          string          `json:"name"`
		Description   string          `json:"description"`
		InitialBudget decimal.Decimal `json:"initialBudget"`
		Color         string          `json:"color"`
		IconRef       string          `json:"iconRef"`
	}

	ProjectTransactionInput struct {
		Name          string           `json:"name"`
		Description   string           `json:"description"`
		EstimatedCost decimal.Decimal  `json:"estimatedCost"`
		RealCost      *decimal.Decimal `json:"realCost,omitempty"`
	}
)

func (c Credentials) Validate() error {
	var v validator
	v.required("username", c.Username)
	v.required("password", c.Password)
	return v.err()
}

func (s SignUpInput) Validate() error {
	var v validator
	v.name("username", s.Username, true)
	v.required("password", s.Password)
	return v.err()
}

func (w WalletInput) Validate() error {
	var v validator
	v.name("name", w.Name, true)
	v.text("description", w.Description, MaxDescriptionLength)
	if !w.Type.IsValid() {
		v.add("type", ErrInvalidChoice)
	}
	return v.err()
}

func (a AutomaticIncomeInput) Validate() error {
	var v validator
	if a.Amount.IsNegative() {
		v.add("amount", ErrNegative)
	}
	if a.PaymentDay < 1 || a.PaymentDay > 31 {
		v.add("paymentDay", ErrOutOfRange)
	}
	if !a.Type.IsValid() {
		v.add("type", ErrInvalidChoice)
	}
	return v.err()
}

func (t TransactionInput) Validate() error {
	var v validator
	if t.Date.IsZero() {
		v.add("date", ErrRequired)
	}
	if !t.Amount.IsPositive() {
		v.add("amount", ErrNotPositive)
	}
	if !t.Type.IsValid() {
		v.add("type", ErrInvalidChoice)
	}
	v.text("description", t.Description, MaxDescriptionLength)
	return v.err()
}

func (l LabelInput) Validate() error {
	var v validator
	v.name("name", l.Name, true)
	return v.err()
}

func (g GoalInput) Validate() error {
	var v validator
	v.name("name", g.Name, true)
	if !g.Amount.IsPositive() {
		v.add("amount", ErrNotPositive)
	}
	if g.StartingDate.IsZero() {
		v.add("startingDate", ErrRequired)
	}
	if g.EndingDate.IsZero() {
		v.add("endingDate", ErrRequired)
	}
	if !g.StartingDate.IsZero() && !g.EndingDate.IsZero() && g.EndingDate.Before(g.StartingDate) {
		v.add("endingDate", ErrInvalidRange)
	}
	return v.err()
}

func (p ProjectInput) Validate() error {
	var v validator
	v.name("name", p.Name, true)
	v.text("description", p.Description, MaxDescriptionLength)
	if p.InitialBudget.IsNegative() {
		v.add("initialBudget", ErrNegative)
	}
	return v.err()
}

func (p ProjectTransactionInput) Validate() error {
	var v validator
	v.name("name", p.Name, true)
	v.text("description", p.Description, MaxDescriptionLength)
	if p.EstimatedCost.IsNegative() {
		v.add("estimatedCost", ErrNegative)
	}
	if p.RealCost != nil && p.RealCost.IsNegative() {
		v.add("realCost", ErrNegative)
	}
	return v.err()
}
