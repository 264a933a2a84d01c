package devserver

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"finsync/internal/core"
	"finsync/internal/log"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type harness struct {
	t   *testing.T
	srv *Server
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.MinCost
	}
	return &harness{t: t, srv: New(cfg)}
}

func (h *harness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(h.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (h *harness) signUp(username string) core.AuthResult {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/auth/sign-up", "", core.SignUpInput{Username: username, Password: "secret"})
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
	var res core.AuthResult
	require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	return decode[map[string]string](t, rec)["message"]
}

func TestSignUpAndSignIn(t *testing.T) {
	h := newHarness(t, Config{})
	res := h.signUp("ada")
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "ada", res.Account.Username)

	rec := h.do(http.MethodPost, "/auth/sign-up", "", core.SignUpInput{Username: "ada", Password: "x"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = h.do(http.MethodPost, "/auth/sign-in", "", core.Credentials{Username: "ada", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, ErrInvalidCredentials.Error(), message(t, rec))

	rec = h.do(http.MethodPost, "/auth/sign-in", "", core.Credentials{Username: "ada", Password: "secret"})
	require.Equal(t, http.StatusOK, rec.Code)
	in := decode[core.AuthResult](t, rec)
	assert.Equal(t, res.Account.ID, in.Account.ID)
	assert.NotEqual(t, res.Token, in.Token)
}

func TestAccountRoutesRequireMatchingToken(t *testing.T) {
	h := newHarness(t, Config{})
	ada := h.signUp("ada")
	bob := h.signUp("bob")

	tests := []struct {
		name  string
		token string
		acc   string
		want  int
	}{
		{"no token", "", ada.Account.ID, http.StatusUnauthorized},
		{"unknown token", "nope", ada.Account.ID, http.StatusUnauthorized},
		{"other account", bob.Token, ada.Account.ID, http.StatusForbidden},
		{"own account", ada.Token, ada.Account.ID, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(http.MethodGet, "/account/"+tt.acc+"/wallet", tt.token, nil)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestWalletBalanceFollowsTransactions(t *testing.T) {
	h := newHarness(t, Config{})
	a := h.signUp("ada")
	base := "/account/" + a.Account.ID

	rec := h.do(http.MethodPost, base+"/wallet", a.Token, core.WalletInput{Name: "Cash", Type: core.WalletCash})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	w := decode[core.Wallet](t, rec)
	assert.True(t, w.Amount.IsZero())
	assert.True(t, w.IsActive)

	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for _, tx := range []core.TransactionInput{
		{Date: day, Amount: decimal.NewFromInt(20000), Type: core.TransactionIn},
		{Date: day.AddDate(0, 0, 1), Amount: decimal.NewFromInt(5000), Type: core.TransactionOut},
	} {
		rec = h.do(http.MethodPost, base+"/wallet/"+w.ID+"/transaction", a.Token, tx)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	ws := decode[[]core.Wallet](t, h.do(http.MethodGet, base+"/wallet", a.Token, nil))
	require.Len(t, ws, 1)
	assert.True(t, decimal.NewFromInt(15000).Equal(ws[0].Amount), ws[0].Amount.String())

	rec = h.do(http.MethodGet, base+"/transaction?type=OUT", a.Token, nil)
	ts := decode[[]core.Transaction](t, rec)
	require.Len(t, ts, 1)
	assert.Equal(t, core.TransactionOut, ts[0].Type)

	rec = h.do(http.MethodGet, base+"/transaction?sort=asc&pageSize=1&page=2", a.Token, nil)
	page := decode[core.Page[core.Transaction]](t, rec)
	assert.Equal(t, core.Pagination{TotalPage: 2, Page: 2, HasPrev: true}, page.Pagination)
	require.Len(t, page.Values, 1)
	assert.Equal(t, core.TransactionOut, page.Values[0].Type)

	rec = h.do(http.MethodGet, base+"/transaction?endDate=2024-05-01", a.Token, nil)
	assert.Len(t, decode[[]core.Transaction](t, rec), 1)

	rec = h.do(http.MethodGet, base+"/transaction?minAmount=abc", a.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid minAmount", message(t, rec))
}

func TestInactiveWalletRejectsTransactions(t *testing.T) {
	h := newHarness(t, Config{})
	a := h.signUp("ada")
	off := false
	w, err := h.srv.Store().CreateWallet(a.Account.ID, core.WalletInput{Name: "Old", Type: core.WalletBank, IsActive: &off})
	require.NoError(t, err)

	rec := h.do(http.MethodPost, "/account/"+a.Account.ID+"/wallet/"+w.ID+"/transaction", a.Token,
		core.TransactionInput{Date: time.Now(), Amount: decimal.NewFromInt(1), Type: core.TransactionIn})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "wallet is not active", message(t, rec))
}

func TestArchivedLabelsAreHidden(t *testing.T) {
	h := newHarness(t, Config{})
	a := h.signUp("ada")
	base := "/account/" + a.Account.ID

	l := decode[core.Label](t, h.do(http.MethodPost, base+"/label", a.Token, core.LabelInput{Name: "Food"}))
	rec := h.do(http.MethodPost, base+"/label/"+l.ID+"/archive", a.Token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	assert.Empty(t, decode[[]core.Label](t, h.do(http.MethodGet, base+"/label", a.Token, nil)))
	all := decode[[]core.Label](t, h.do(http.MethodGet, base+"/label?archived=true", a.Token, nil))
	require.Len(t, all, 1)
	assert.True(t, all[0].IsArchived)
}

func TestGoalProgressIsCappedBalance(t *testing.T) {
	s := NewStore(bcrypt.MinCost)
	a, err := s.SignUp("ada", "pw")
	require.NoError(t, err)
	acc := a.Account.ID
	w, err := s.CreateWallet(acc, core.WalletInput{Name: "Savings", Type: core.WalletBank})
	require.NoError(t, err)
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	g, err := s.CreateGoal(acc, w.ID, core.GoalInput{Name: "Trip", Amount: decimal.NewFromInt(100), StartingDate: day, EndingDate: day.AddDate(1, 0, 0)})
	require.NoError(t, err)
	assert.True(t, g.CurrentAmount.IsZero())

	_, err = s.CreateTransaction(acc, w.ID, core.TransactionInput{Date: day, Amount: decimal.NewFromInt(40), Type: core.TransactionIn})
	require.NoError(t, err)
	gs, err := s.ListGoals(acc, false)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(40).Equal(gs[0].CurrentAmount))

	_, err = s.CreateTransaction(acc, w.ID, core.TransactionInput{Date: day, Amount: decimal.NewFromInt(500), Type: core.TransactionIn})
	require.NoError(t, err)
	gs, err = s.ListGoals(acc, false)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(gs[0].CurrentAmount))

	_, err = s.UpdateGoal(acc, "other-wallet", g.ID, core.GoalInput{Name: "Trip", Amount: decimal.NewFromInt(1), StartingDate: day, EndingDate: day})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProjectStatisticsAndPDF(t *testing.T) {
	h := newHarness(t, Config{})
	a := h.signUp("ada")
	base := "/account/" + a.Account.ID

	p := decode[core.Project](t, h.do(http.MethodPost, base+"/project", a.Token,
		core.ProjectInput{Name: "Kitchen", InitialBudget: decimal.NewFromInt(1000)}))
	realCost := decimal.NewFromInt(250)
	for _, in := range []core.ProjectTransactionInput{
		{Name: "Tiles", EstimatedCost: decimal.NewFromInt(300), RealCost: &realCost},
		{Name: "Paint", EstimatedCost: decimal.NewFromInt(100)},
	} {
		rec := h.do(http.MethodPost, base+"/project/"+p.ID+"/transaction", a.Token, in)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	st := decode[core.ProjectStatistics](t, h.do(http.MethodGet, base+"/project/"+p.ID+"/statistics", a.Token, nil))
	assert.True(t, decimal.NewFromInt(400).Equal(st.TotalEstimatedCost))
	assert.True(t, decimal.NewFromInt(250).Equal(st.TotalRealCost))
	assert.True(t, decimal.NewFromInt(650).Equal(st.RemainingBudget))
	assert.Equal(t, 2, st.TransactionCount)

	rec := h.do(http.MethodGet, base+"/project/"+p.ID+"/pdf/summary", a.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
	assert.True(t, bytes.HasSuffix(rec.Body.Bytes(), []byte("%%EOF\n")))

	rec = h.do(http.MethodGet, base+"/project/"+p.ID+"/pdf/poster", a.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodDelete, base+"/project/"+p.ID, a.Token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = h.do(http.MethodGet, base+"/project/"+p.ID+"/transaction", a.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRejectsMalformedBody(t *testing.T) {
	h := newHarness(t, Config{})
	a := h.signUp("ada")
	req := httptest.NewRequest(http.MethodPost, "/account/"+a.Account.ID+"/label", bytes.NewBufferString("{"))
	req.Header.Set("Authorization", "Bearer "+a.Token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid request body", message(t, rec))
}

func TestRateLimit(t *testing.T) {
	h := newHarness(t, Config{RequestsPerMinute: 2})
	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/healthz", "", nil).Code)
	}
	rec := h.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestLimiterWindowResets(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newLimiter(1)
	l.now = func() time.Time { return now }
	assert.True(t, l.allow("1.2.3.4"))
	assert.False(t, l.allow("1.2.3.4"))
	assert.True(t, l.allow("5.6.7.8"))
	now = now.Add(61 * time.Second)
	assert.True(t, l.allow("1.2.3.4"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	h := newHarness(t, Config{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(headerRequestID, "req-42")
	rec := httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get(headerRequestID))
	assert.EqualValues(t, 1, h.srv.Requests())
}

func TestSecurityHeaders(t *testing.T) {
	h := newHarness(t, Config{})
	rec := h.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Empty(t, rec.Header().Get("Cache-Control"))

	res := h.signUp("frank")
	rec = h.do(http.MethodGet, "/account/"+res.Account.ID+"/wallet", res.Token, nil)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestTraceScopesLoggerToRequest(t *testing.T) {
	var requests atomic.Int64
	r := gin.New()
	r.Use(trace(log.New(log.Config{Writer: io.Discard, Component: log.ComponentDevServer}), &requests))
	var component string
	r.GET("/ping", func(c *gin.Context) {
		component = log.FromContext(c.Request.Context()).Component()
		c.Status(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, log.ComponentDevServer, component)
	assert.NotEmpty(t, rec.Header().Get(headerRequestID))
	assert.EqualValues(t, 1, requests.Load())
}
