package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionFilterQuery(t *testing.T) {
	lo := decimal.NewFromInt(10)
	hi := decimal.NewFromInt(5000)
	f := TransactionFilter{
		Type:      TransactionOut,
		WalletID:  "w1",
		From:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		To:        time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
		MinAmount: &lo,
		MaxAmount: &hi,
		Sort:      SortDesc,
		Page:      2,
		PageSize:  20,
	}
	q := f.Query()

	expected := map[string]string{
		ParamType:      "OUT",
		ParamWalletID:  "w1",
		ParamStartDate: "2025-01-01",
		ParamEndDate:   "2025-01-31",
		ParamMinAmount: "10",
		ParamMaxAmount: "5000",
		ParamSort:      "desc",
		ParamPage:      "2",
		ParamPageSize:  "20",
	}
	assert.Len(t, q, len(expected))
	for k, v := range expected {
		require.Len(t, q[k], 1, "param %s must appear exactly once", k)
		assert.Equal(t, v, q.Get(k))
	}
}

func TestTransactionFilterQueryOmitsEmpty(t *testing.T) {
	q := TransactionFilter{WalletID: "w1"}.Query()
	assert.Equal(t, "walletId=w1", q.Encode())
	assert.Empty(t, TransactionFilter{}.Key())
}

func TestTransactionFilterValidate(t *testing.T) {
	lo := decimal.NewFromInt(10)
	hi := decimal.NewFromInt(5)
	err := TransactionFilter{MinAmount: &lo, MaxAmount: &hi}.Validate()
	require.Error(t, err)
	assert.True(t, err.(ValidationErrors).Has("maxAmount", ErrInvalidRange))
}

func TestListFilterKeyIsCanonical(t *testing.T) {
	a := ListFilter{Page: 1, PageSize: 10, IncludeArchived: true}
	b := ListFilter{IncludeArchived: true, PageSize: 10, Page: 1}
	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, "archived=true&page=1&pageSize=10", a.Key())
}

func TestPaginate(t *testing.T) {
	values := []int{1, 2, 3, 4, 5}

	p := Paginate(values, 2, 2)
	assert.Equal(t, []int{3, 4}, p.Values)
	assert.Equal(t, Pagination{TotalPage: 3, Page: 2, HasNext: true, HasPrev: true}, p.Pagination)

	last := Paginate(values, 3, 2)
	assert.Equal(t, []int{5}, last.Values)
	assert.False(t, last.Pagination.HasNext)

	all := Paginate(values, 0, 0)
	assert.Equal(t, Pagination{TotalPage: 1, Page: 1}, all.Pagination)
	assert.Len(t, all.Values, 5)

	empty := SinglePage[int](nil)
	assert.NotNil(t, empty.Values)
}
