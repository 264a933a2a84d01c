package devserver

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"finsync/internal/core"
	"finsync/internal/log"
)

// fail maps store errors onto status codes with a {"message"} body.
func (s *Server) fail(c *gin.Context, err error) {
	var bad BadRequest
	switch {
	case errors.As(err, &bad):
		abort(c, http.StatusBadRequest, bad.Error())
	case errors.Is(err, ErrNotFound):
		abort(c, http.StatusNotFound, "not found")
	case errors.Is(err, ErrConflict):
		abort(c, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidCredentials):
		abort(c, http.StatusUnauthorized, err.Error())
	default:
		ctx := c.Request.Context()
		log.FromContext(ctx).ErrorContext(ctx, "Request failed", log.FieldError, err)
		abort(c, http.StatusInternalServerError, "internal error")
	}
}

func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		abort(c, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func account(c *gin.Context) string { return c.GetString(ctxAccountID) }

// respond writes v, or the store error.
func respond[T any](s *Server, c *gin.Context, status int, v T, err error) {
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(status, v)
}

func (s *Server) noContent(c *gin.Context, err error) {
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// list sends a bare array unless the client asked for paging, in which
// case it sends the pagination envelope.
func list[T any](s *Server, c *gin.Context, values []T, err error) {
	if err != nil {
		s.fail(c, err)
		return
	}
	page, size, perr := paging(c)
	if perr != nil {
		abort(c, http.StatusBadRequest, perr.Error())
		return
	}
	if size == 0 {
		c.JSON(http.StatusOK, values)
		return
	}
	c.JSON(http.StatusOK, core.Paginate(values, page, size))
}

func paging(c *gin.Context) (page, size int, err error) {
	if v := c.Query(core.ParamPage); v != "" {
		if page, err = strconv.Atoi(v); err != nil || page < 1 {
			return 0, 0, fmt.Errorf("invalid %s", core.ParamPage)
		}
	}
	if v := c.Query(core.ParamPageSize); v != "" {
		if size, err = strconv.Atoi(v); err != nil || size < 1 {
			return 0, 0, fmt.Errorf("invalid %s", core.ParamPageSize)
		}
	}
	return page, size, nil
}

func archived(c *gin.Context) bool { return c.Query(core.ParamArchived) == "true" }

// Auth

func (s *Server) signUp(c *gin.Context) {
	var in core.SignUpInput
	if !bind(c, &in) {
		return
	}
	res, err := s.store.SignUp(in.Username, in.Password)
	respond(s, c, http.StatusCreated, res, err)
}

func (s *Server) signIn(c *gin.Context) {
	var in core.Credentials
	if !bind(c, &in) {
		return
	}
	res, err := s.store.SignIn(in.Username, in.Password)
	respond(s, c, http.StatusOK, res, err)
}

// Wallets

func (s *Server) listWallets(c *gin.Context) {
	ws, err := s.store.ListWallets(account(c))
	list(s, c, ws, err)
}

func (s *Server) createWallet(c *gin.Context) {
	var in core.WalletInput
	if !bind(c, &in) {
		return
	}
	w, err := s.store.CreateWallet(account(c), in)
	respond(s, c, http.StatusCreated, w, err)
}

func (s *Server) updateWallet(c *gin.Context) {
	var in core.WalletInput
	if !bind(c, &in) {
		return
	}
	w, err := s.store.UpdateWallet(account(c), c.Param("walletId"), in)
	respond(s, c, http.StatusOK, w, err)
}

func (s *Server) updateAutomaticIncome(c *gin.Context) {
	var in core.AutomaticIncomeInput
	if !bind(c, &in) {
		return
	}
	w, err := s.store.UpdateAutomaticIncome(account(c), c.Param("walletId"), in)
	respond(s, c, http.StatusOK, w, err)
}

// Transactions

func transactionQuery(c *gin.Context) (TransactionQuery, error) {
	q := TransactionQuery{
		Type:     core.TransactionType(c.Query(core.ParamType)),
		WalletID: c.Query(core.ParamWalletID),
		Sort:     core.SortOrder(c.Query(core.ParamSort)),
	}
	if q.Type != "" && !q.Type.IsValid() {
		return q, fmt.Errorf("invalid %s", core.ParamType)
	}
	if q.Sort != "" && q.Sort != core.SortAsc && q.Sort != core.SortDesc {
		return q, fmt.Errorf("invalid %s", core.ParamSort)
	}
	var err error
	if v := c.Query(core.ParamStartDate); v != "" {
		if q.From, err = core.ParseDate(v); err != nil {
			return q, fmt.Errorf("invalid %s", core.ParamStartDate)
		}
	}
	if v := c.Query(core.ParamEndDate); v != "" {
		if q.To, err = core.ParseDate(v); err != nil {
			return q, fmt.Errorf("invalid %s", core.ParamEndDate)
		}
	}
	for name, dst := range map[string]**decimal.Decimal{core.ParamMinAmount: &q.MinAmount, core.ParamMaxAmount: &q.MaxAmount} {
		v := c.Query(name)
		if v == "" {
			continue
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return q, fmt.Errorf("invalid %s", name)
		}
		*dst = &d
	}
	return q, nil
}

func (s *Server) listTransactions(c *gin.Context) {
	q, err := transactionQuery(c)
	if err != nil {
		abort(c, http.StatusBadRequest, err.Error())
		return
	}
	ts, err := s.store.ListTransactions(account(c), q)
	list(s, c, ts, err)
}

func (s *Server) createTransaction(c *gin.Context) {
	var in core.TransactionInput
	if !bind(c, &in) {
		return
	}
	t, err := s.store.CreateTransaction(account(c), c.Param("walletId"), in)
	respond(s, c, http.StatusCreated, t, err)
}

func (s *Server) updateTransaction(c *gin.Context) {
	var in core.TransactionInput
	if !bind(c, &in) {
		return
	}
	t, err := s.store.UpdateTransaction(account(c), c.Param("walletId"), c.Param("id"), in)
	respond(s, c, http.StatusOK, t, err)
}

func (s *Server) deleteTransaction(c *gin.Context) {
	s.noContent(c, s.store.DeleteTransaction(account(c), c.Param("walletId"), c.Param("id")))
}

// Labels

func (s *Server) listLabels(c *gin.Context) {
	ls, err := s.store.ListLabels(account(c), archived(c))
	list(s, c, ls, err)
}

func (s *Server) createLabel(c *gin.Context) {
	var in core.LabelInput
	if !bind(c, &in) {
		return
	}
	l, err := s.store.CreateLabel(account(c), in)
	respond(s, c, http.StatusCreated, l, err)
}

func (s *Server) updateLabel(c *gin.Context) {
	var in core.LabelInput
	if !bind(c, &in) {
		return
	}
	l, err := s.store.UpdateLabel(account(c), c.Param("id"), in)
	respond(s, c, http.StatusOK, l, err)
}

func (s *Server) archiveLabel(c *gin.Context) {
	s.noContent(c, s.store.ArchiveLabel(account(c), c.Param("id")))
}

// Goals

func (s *Server) listGoals(c *gin.Context) {
	gs, err := s.store.ListGoals(account(c), archived(c))
	list(s, c, gs, err)
}

func (s *Server) createGoal(c *gin.Context) {
	var in core.GoalInput
	if !bind(c, &in) {
		return
	}
	g, err := s.store.CreateGoal(account(c), c.Param("walletId"), in)
	respond(s, c, http.StatusCreated, g, err)
}

func (s *Server) updateGoal(c *gin.Context) {
	var in core.GoalInput
	if !bind(c, &in) {
		return
	}
	g, err := s.store.UpdateGoal(account(c), c.Param("walletId"), c.Param("id"), in)
	respond(s, c, http.StatusOK, g, err)
}

func (s *Server) archiveGoal(c *gin.Context) {
	s.noContent(c, s.store.ArchiveGoal(account(c), c.Param("id")))
}

// Projects

func (s *Server) listProjects(c *gin.Context) {
	ps, err := s.store.ListProjects(account(c), archived(c))
	list(s, c, ps, err)
}

func (s *Server) getProject(c *gin.Context) {
	p, err := s.store.GetProject(account(c), c.Param("id"))
	respond(s, c, http.StatusOK, p, err)
}

func (s *Server) createProject(c *gin.Context) {
	var in core.ProjectInput
	if !bind(c, &in) {
		return
	}
	p, err := s.store.CreateProject(account(c), in)
	respond(s, c, http.StatusCreated, p, err)
}

func (s *Server) updateProject(c *gin.Context) {
	var in core.ProjectInput
	if !bind(c, &in) {
		return
	}
	p, err := s.store.UpdateProject(account(c), c.Param("id"), in)
	respond(s, c, http.StatusOK, p, err)
}

func (s *Server) deleteProject(c *gin.Context) {
	s.noContent(c, s.store.DeleteProject(account(c), c.Param("id")))
}

func (s *Server) archiveProject(c *gin.Context) {
	s.noContent(c, s.store.ArchiveProject(account(c), c.Param("id")))
}

func (s *Server) statistics(c *gin.Context) {
	st, err := s.store.Statistics(account(c), c.Param("id"))
	respond(s, c, http.StatusOK, st, err)
}

func (s *Server) pdf(c *gin.Context) {
	kind := core.PDFKind(c.Param("kind"))
	if !kind.IsValid() {
		abort(c, http.StatusNotFound, "unknown report")
		return
	}
	acc, id := account(c), c.Param("id")
	p, err := s.store.GetProject(acc, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	st, err := s.store.Statistics(acc, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	body := renderReport(p, st, kind)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-%s.pdf"`, p.ID, kind))
	c.Data(http.StatusOK, "application/pdf", body)
}

// Project transactions

func (s *Server) listProjectTransactions(c *gin.Context) {
	pts, err := s.store.ListProjectTransactions(account(c), c.Param("id"))
	list(s, c, pts, err)
}

func (s *Server) createProjectTransaction(c *gin.Context) {
	var in core.ProjectTransactionInput
	if !bind(c, &in) {
		return
	}
	pt, err := s.store.CreateProjectTransaction(account(c), c.Param("id"), in)
	respond(s, c, http.StatusCreated, pt, err)
}

func (s *Server) updateProjectTransaction(c *gin.Context) {
	var in core.ProjectTransactionInput
	if !bind(c, &in) {
		return
	}
	pt, err := s.store.UpdateProjectTransaction(account(c), c.Param("id"), c.Param("txId"), in)
	respond(s, c, http.StatusOK, pt, err)
}

func (s *Server) deleteProjectTransaction(c *gin.Context) {
	s.noContent(c, s.store.DeleteProjectTransaction(account(c), c.Param("id"), c.Param("txId")))
}
