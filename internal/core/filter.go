package core

import (
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// SortOrder of list results by date (transactions) or creation.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Query parameter names understood by the backend.
const (
	ParamType      = "type"
	ParamWalletID  = "walletId"
	ParamStartDate = "startDate"
	ParamEndDate   = "endDate"
	ParamMinAmount = "minAmount"
	ParamMaxAmount = "maxAmount"
	ParamSort      = "sort"
	ParamPage      = "page"
	ParamPageSize  = "pageSize"
	ParamArchived  = "archived"
)

const dateLayout = "2006-01-02"

// ListFilter applies to wallets, labels, goals, projects and project
// transactions.
type ListFilter struct {
	Page            int
	PageSize        int
	Sort            SortOrder
	IncludeArchived bool
}

// Query returns the non-empty fields as query parameters, each set once.
func (f ListFilter) Query() url.Values {
	q := url.Values{}
	setPaging(q, f.Page, f.PageSize, f.Sort)
	if f.IncludeArchived {
		q.Set(ParamArchived, "true")
	}
	return q
}

// Key is a canonical serialization used to address cached reads.
func (f ListFilter) Key() string { return f.Query().Encode() }

// TransactionFilter narrows a transaction listing.
type TransactionFilter struct {
	Type      TransactionType
	WalletID  string
	From      time.Time
	To        time.Time
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
	Sort      SortOrder
	Page      int
	PageSize  int
}

func (f TransactionFilter) Query() url.Values {
	q := url.Values{}
	if f.Type != "" {
		q.Set(ParamType, string(f.Type))
	}
	if f.WalletID != "" {
		q.Set(ParamWalletID, f.WalletID)
	}
	if !f.From.IsZero() {
		q.Set(ParamStartDate, f.From.Format(dateLayout))
	}
	if !f.To.IsZero() {
		q.Set(ParamEndDate, f.To.Format(dateLayout))
	}
	if f.MinAmount != nil {
		q.Set(ParamMinAmount, f.MinAmount.String())
	}
	if f.MaxAmount != nil {
		q.Set(ParamMaxAmount, f.MaxAmount.String())
	}
	setPaging(q, f.Page, f.PageSize, f.Sort)
	return q
}

func (f TransactionFilter) Key() string { return f.Query().Encode() }

func (f TransactionFilter) Validate() error {
	var v validator
	if f.Type != "" && !f.Type.IsValid() {
		v.add("type", ErrInvalidChoice)
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		v.add("endDate", ErrInvalidRange)
	}
	if f.MinAmount != nil && f.MaxAmount != nil && f.MaxAmount.LessThan(*f.MinAmount) {
		v.add("maxAmount", ErrInvalidRange)
	}
	if f.Sort != "" && f.Sort != SortAsc && f.Sort != SortDesc {
		v.add("sort", ErrInvalidChoice)
	}
	return v.err()
}

func setPaging(q url.Values, page, size int, sort SortOrder) {
	if page > 0 {
		q.Set(ParamPage, strconv.Itoa(page))
	}
	if size > 0 {
		q.Set(ParamPageSize, strconv.Itoa(size))
	}
	if sort != "" {
		q.Set(ParamSort, string(sort))
	}
}

// ParseDate parses the yyyy-mm-dd form used in query parameters.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}
