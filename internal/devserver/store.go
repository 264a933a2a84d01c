package devserver

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"finsync/internal/core"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// BadRequest is a rejected payload; its text is sent back as the message.
type BadRequest string

func (b BadRequest) Error() string { return string(b) }

type user struct {
	account core.Account
	hash    []byte
}

// ledger holds one account's entities in insertion order.
type ledger struct {
	wallets      []*core.Wallet
	transactions []*core.Transaction
	labels       []*core.Label
	goals        []*core.Goal
	projects     []*core.Project
	projectTx    []*core.ProjectTransaction
}

// Store is the backend's state. Everything lives in memory and is lost
// on restart.
type Store struct {
	mu      sync.Mutex
	cost    int
	users   map[string]*user // by username
	tokens  map[string]string
	ledgers map[string]*ledger
}

// NewStore returns an empty store hashing passwords with the given bcrypt
// cost. A cost below bcrypt.MinCost selects bcrypt.DefaultCost.
func NewStore(cost int) *Store {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &Store{
		cost:    cost,
		users:   map[string]*user{},
		tokens:  map[string]string{},
		ledgers: map[string]*ledger{},
	}
}

func (s *Store) SignUp(username, password string) (core.AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return core.AuthResult{}, BadRequest("username and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return core.AuthResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; ok {
		return core.AuthResult{}, ErrConflict
	}
	u := &user{account: core.Account{ID: uuid.NewString(), Username: username}, hash: hash}
	s.users[username] = u
	s.ledgers[u.account.ID] = &ledger{}
	return s.issueLocked(u), nil
}

func (s *Store) SignIn(username, password string) (core.AuthResult, error) {
	s.mu.Lock()
	u, ok := s.users[strings.TrimSpace(username)]
	s.mu.Unlock()
	if !ok {
		return core.AuthResult{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword(u.hash, []byte(password)) != nil {
		return core.AuthResult{}, ErrInvalidCredentials
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(u), nil
}

func (s *Store) issueLocked(u *user) core.AuthResult {
	token := uuid.NewString()
	s.tokens[token] = u.account.ID
	return core.AuthResult{Account: u.account, Token: token}
}

// Authenticate maps a bearer token to its account id.
func (s *Store) Authenticate(token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.tokens[token]
	return acc, ok
}

// Revoke invalidates a token.
func (s *Store) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

func (s *Store) ledgerLocked(acc string) (*ledger, error) {
	l, ok := s.ledgers[acc]
	if !ok {
		return nil, ErrNotFound
	}
	return l, nil
}

// balanceLocked is the sum of incoming minus outgoing transactions.
func (l *ledger) balanceLocked(walletID string) decimal.Decimal {
	total := decimal.Zero
	for _, t := range l.transactions {
		if t.WalletID == walletID {
			total = total.Add(t.Signed())
		}
	}
	return total
}

func (l *ledger) wallet(id string) *core.Wallet {
	for _, w := range l.wallets {
		if w.ID == id {
			return w
		}
	}
	return nil
}

func (l *ledger) walletView(w *core.Wallet) core.Wallet {
	out := *w
	out.Amount = l.balanceLocked(w.ID)
	if w.AutomaticIncome != nil {
		ai := *w.AutomaticIncome
		out.AutomaticIncome = &ai
	}
	return out
}

// Wallets

func (s *Store) ListWallets(acc string) ([]core.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.ledgerLocked(acc)
	if err != nil {
		return nil, err
	}
	out := make([]core.Wallet, 0, len(l.wallets))
	for _, w := range l.wallets {
		out = append(out, l.walletView(w))
	}
	return out, nil
}

func (s *Store) CreateWallet(acc string, in core.WalletInput) (core.Wallet, error) {
	if err := in.Validate(); err != nil {
		return core.Wallet{}, BadRequest(err.Error())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.ledgerLocked(acc)
	if err != nil {
		return core.Wallet{}, err
	}
	w := &core.Wallet{ID: uuid.NewString(), IsActive: true}
	applyWallet(w, in)
	l.wallets = append(l.wallets, w)
	return l.walletView(w), nil
}

func (s *Store) UpdateWallet(acc, id string, in core.WalletInput) (core.Wallet, error) {
	if err := in.Validate(); err != nil {
		return core.Wallet{}, BadRequest(err.Error())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.ledgerLocked(acc)
	if err != nil {
		return core.Wallet{}, err
	}
	w := l.wallet(id)
	if w == nil {
		return core.Wallet{}, ErrNotFound
	}
	applyWallet(w, in)
	return l.walletView(w), nil
}

func applyWallet(w *core.Wallet, in core.WalletInput) {
	w.Name = in.Name
	w.Description = in.Description
	w.Type = in.Type
	w.Color = in.Color
	w.IconRef = in.IconRef
	if in.IsActive != nil {
		w.IsActive = *in.IsActive
	}
}

func (s *Store) UpdateAutomaticIncome(acc, id string, in core.AutomaticIncomeInput) (core.Wallet, error) {
	if err := in.Validate(); err != nil {
		return core.Wallet{}, BadRequest(err.Error())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.ledgerLocked(acc)
	if err != nil {
		return core.Wallet{}, err
	}
	w := l.wallet(id)
	if w == nil {
		return core.Wallet{}, ErrNotFound
	}
	w.AutomaticIncome = &core.AutomaticIncome{Amount: in.Amount, PaymentDay: in.PaymentDay, Type: in.Type}
	return l.walletView(w), nil
}

// Transactions

// TransactionQuery is a parsed transaction listing filter.
type TransactionQuery struct {
	Type      core.TransactionType
	WalletID  string
	From, To  time.Time
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
	Sort      core.SortOrder
}

func (q TransactionQuery) match(t *core.Transaction) bool {
	switch {
	case q.Type != "" && t.Type != q.Type:
		return false
	case q.WalletID != "" && t.WalletID != q.WalletID:
		return false
	case !q.From.IsZero() && t.Date.Before(q.From):
		return false
	case !q.To.IsZero() && !t.Date.Before(q.To.AddDate(0, 0, 1)):
		return false
	case q.MinAmount != nil && t.Amount.LessThan(*q.MinAmount):
		return false
	case q.MaxAmount != nil && t.Amount.GreaterThan(*q.MaxAmount):
		return false
	}
	return true
}

// ListTransactions filters and sorts by date, newest first unless the
// query asks for ascending order.
func (s *Store) ListTransactions(acc string, q TransactionQuery) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.ledgerLocked(acc)
	if err != nil {
		return nil, err
	}
	out := []core.Transaction{}
	for _, t := range l.transactions {
		if q.match(t) {
			out = append(out, copyTransaction(t))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if q.Sort == core.SortAsc {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Date.After(out[j].Date)
	})
	return out, nil
}

func copyTransaction(t *core.Transaction) core.Transaction {
	out := *t
	out.Labels = append([]core.Label{}, t.Labels...)
	return out
}

func (l *ledger) resolveLabels(ids []string) ([]core.Label, error) {
	out := make([]core.Label, 0, len(ids))
	for _, id := range ids {
		var found *core.Label
		for _, lb := range l.labels {
			if lb.ID == id {
				found = lb
				break
			}
		}
		if found == nil {
			return nil, BadRequest("unknown label " + id)
		}
		out = append(out, *found)
	}
	return out, nil
}

func (s *Store) CreateTransaction(acc, walletID string, in core.TransactionInput) (core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return core.Transaction{}, BadRequest(err.Error())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.ledgerLocked(acc)
	if err != nil {
		return core.Transaction{}, err
	}
	w := l.wallet(walletID)
	if w == nil {
		return core.Transaction{}, ErrNotFound
	}
	if !w.IsActive {
		return core.Transaction{}, BadRequest("wallet is not active")
	}
	labels, err := l.resolveLabels(in.LabelIDs)
	if err != nil {
		return core.Transaction{}, err
	}
	t := &core.Transaction{
		ID:          uuid.NewString(),
		Date:        in.Date,
		Amount:      in.Amount,
		Type:        in.Type,
		Description: in.Description,
		WalletID:    walletID,
		AccountID:   acc,
		Labels:      labels,
	}
	l.transactions = append(l.transactions, t)
	return copyTransaction(t), nil
}

func (l *ledger) transaction(walletID, id string) (int, *core.Transaction) {
	for i, t := range l.transactions {
		if t.ID == id && t.WalletID == walletID {
			return i, t
		}
	}
	return -1, nil
}

func (s *Store) UpdateTransaction(acc, walletID, id string, in core.TransactionInput) (core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return core.Transaction{}, BadRequest(err.Error())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.ledgerLocked(acc)
	if err != nil {
		return core.Transaction{}, err
	}
	_, t := l.transaction(walletID, id)
	if t == nil {
		return core.Transaction{}, ErrNotFound
	}
	labels, err := l.resolveLabels(in.LabelIDs)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Date = in.Date
	t.Amount = in.Amount
	t.Type = in.Type
	t.Description = in.Description
	t.Labels = labels
	return copyTransaction(t), nil
}

func (s *Store) DeleteTransaction(acc, walletID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.ledgerLocked(acc)
	if err != nil {
		return err
	}
	i, _ := l.transaction(walletID, id)
	if i < 0 {
		return ErrNotFound
	}
	l.transactions = append(l.transactions[:i], l.transactions[i+1:]...)
	return nil
}

// Labels

func (s *Store) ListLabels(acc string, archived bool) ([]core.Label, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.ledgerLocked(acc)
	if err != nil {
		return nil, err
	}
	out := []core.Label{}
	for _, lb := range l.labels {
		if archived || !lb.IsArchived {
			out = append(out, *lb)
		}
	}
	return out, nil
}

func (s *Store) CreateLabel(acc string, in core.LabelInput) (core.Label, error) {
	if err := in.Validate(); err != nil {
		return core.Label{}, BadRequest(err.Error())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.ledgerLocked(acc)
	if err != nil {
		return core.Label{}, err
	}
	lb := &core.Label{ID: uuid.NewString(), Name: in.Name, Color: in.Color, IconRef: in.IconRef}
	l.labels = append(l.labels, lb)
	return *lb, nil
}

func (l *ledger) label(id string) *core.Label {
	for _, lb := range l.labels {
		if lb.ID == id {
			return lb
		}
	}
	return nil
}

func (s *Store) UpdateLabel(acc, id string, in core.LabelInput) (core.Label, error) {
	if err := in.Validate(); err != nil {
		return core.Label{}, BadRequest(err.Error())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.ledgerLocked(acc)
	if err != nil {
		return core.Label{}, err
	}
	lb := l.label(id)
	if lb == nil {
		return core.Label{}, ErrNotFound
	}
	lb.Name, lb.Color, lb.IconRef = in.Name, in.Color, in.IconRef
	return *lb, nil
}

func (s *Store) ArchiveLabel(acc, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.ledgerLocked(acc)
	if err != nil {
		return err
	}
	lb := l.label(id)
	if lb == nil {
		return ErrNotFound
	}
	lb.IsArchived = true
	return nil
}

// Goals

// goalView derives progress from the wallet balance, never below zero and
// never above the target.
func (l *ledger) goalView(g *core.Goal) core.Goal {
	out := *g
	cur := l.balanceLocked(g.WalletID)
	if cur.IsNegative() {
		cur = decimal.Zero
	}
	if cur.GreaterThan(g.Amount) {
		cur = g.Amount
	}
	out.CurrentAmount = cur
	return out
}

func (s *Store) ListGoals(acc string, archived bool) ([]core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.ledgerLocked(acc)
	if err != nil {
		return nil, err
	}
	out := []core.Goal{}
	for _, g := range l.goals {
		if archived || !g.IsArchived {
			out = append(out, l.goalView(g))
		}
	}
	return out, nil
}

func (s *Store) CreateGoal(acc, walletID string, in core.GoalInput) (core.Goal, error) {
	if err := in.Validate(); err != nil {
		return core.Goal{}, BadRequest(err.Error())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.ledgerLocked(acc)
	if err != nil {
		return core.Goal{}, err
	}
	if l.wallet(walletID) == nil {
		return core.Goal{}, ErrNotFound
	}
	g := &core.Goal{ID: uuid.NewString(), WalletID: walletID, AccountID: acc}
	applyGoal(g, in)
	l.goals = append(l.goals, g)
	return l.goalView(g), nil
}

func (l *ledger) goal(id string) *core.Goal {
	for _, g := range l.goals {
		if g.ID == id {
			return g
		}
	}
	return nil
}

func (s *Store) UpdateGoal(acc, walletID, id string, in core.GoalInput) (core.Goal, error) {
	if err := in.Validate(); err != nil {
		return core.Goal{}, BadRequest(err.Error())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.ledgerLocked(acc)
	if err != nil {
		return core.Goal{}, err
	}
	g := l.goal(id)
	if g == nil || g.WalletID != walletID {
		return core.Goal{}, ErrNotFound
	}
	applyGoal(g, in)
	return l.goalView(g), nil
}

func applyGoal(g *core.Goal, in core.GoalInput) {
	g.Name = in.Name
	g.Amount = in.Amount
	g.StartingDate = in.StartingDate
	g.EndingDate = in.EndingDate
	g.Color = in.Color
	g.IconRef = in.IconRef
}

func (s *Store) ArchiveGoal(acc, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.ledgerLocked(acc)
	if err != nil {
		return err
	}
	g := l.goal(id)
	if g == nil {
		return ErrNotFound
	}
	g.IsArchived = true
	return nil
}

// Projects

func (s *Store) ListProjects(acc string, archived bool) ([]core.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.ledgerLocked(acc)
	if err != nil {
		return nil, err
	}
	out := []core.Project{}
	for _, p := range l.projects {
		if archived || !p.IsArchived {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (l *ledger) project(id string) (int, *core.Project) {
	for i, p := range l.projects {
		if p.ID == id {
			return i, p
		}
	}
	return -1, nil
}

func (s *Store) GetProject(acc, id string) (core.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.ledgerLocked(acc)
	if err != nil {
		return core.Project{}, err
	}
	_, p := l.project(id)
	if p == nil {
		return core.Project{}, ErrNotFound
	}
	return *p, nil
}

func (s *Store) CreateProject(acc string, in core.ProjectInput) (core.Project, error) {
	if err := in.Validate(); err != nil {
		return core.Project{}, BadRequest(err.Error())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.ledgerLocked(acc)
	if err != nil {
		return core.Project{}, err
	}
	p := &core.Project{ID: uuid.NewString(), AccountID: acc}
	applyProject(p, in)
	l.projects = append(l.projects, p)
	return *p, nil
}

func (s *Store) UpdateProject(acc, id string, in core.ProjectInput) (core.Project, error) {
	if err := in.Validate(); err != nil {
		return core.Project{}, BadRequest(err.Error())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.ledgerLocked(acc)
	if err != nil {
		return core.Project{}, err
	}
	_, p := l.project(id)
	if p == nil {
		return core.Project{}, ErrNotFound
	}
	applyProject(p, in)
	return *p, nil
}

func applyProject(p *core.Project, in core.ProjectInput) {
	p.Name = in.Name
	p.Description = in.Description
	p.InitialBudget = in.InitialBudget
	p.Color = in.Color
	p.IconRef = in.IconRef
}

// DeleteProject removes the project and its itemized costs.
func (s *Store) DeleteProject(acc, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.ledgerLocked(acc)
	if err != nil {
		return err
	}
	i, _ := l.project(id)
	if i < 0 {
		return ErrNotFound
	}
	l.projects = append(l.projects[:i], l.projects[i+1:]...)
	kept := l.projectTx[:0]
	for _, pt := range l.projectTx {
		if pt.ProjectID != id {
			kept = append(kept, pt)
		}
	}
	l.projectTx = kept
	return nil
}

func (s *Store) ArchiveProject(acc, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.ledgerLocked(acc)
	if err != nil {
		return err
	}
	_, p := l.project(id)
	if p == nil {
		return ErrNotFound
	}
	p.IsArchived = true
	return nil
}

// Statistics sums the project's itemized costs. The remaining budget uses
// the real cost where known and the estimate otherwise.
func (s *Store) Statistics(acc, id string) (core.ProjectStatistics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.ledgerLocked(acc)
	if err != nil {
		return core.ProjectStatistics{}, err
	}
	_, p := l.project(id)
	if p == nil {
		return core.ProjectStatistics{}, ErrNotFound
	}
	st := core.ProjectStatistics{
		TotalEstimatedCost: decimal.Zero,
		TotalRealCost:      decimal.Zero,
		RemainingBudget:    p.InitialBudget,
	}
	for _, pt := range l.projectTx {
		if pt.ProjectID != id {
			continue
		}
		st.TransactionCount++
		st.TotalEstimatedCost = st.TotalEstimatedCost.Add(pt.EstimatedCost)
		if pt.RealCost != nil {
			st.TotalRealCost = st.TotalRealCost.Add(*pt.RealCost)
		}
		st.RemainingBudget = st.RemainingBudget.Sub(pt.Cost())
	}
	return st, nil
}

// Project transactions

func copyProjectTx(pt *core.ProjectTransaction) core.ProjectTransaction {
	out := *pt
	if pt.RealCost != nil {
		rc := *pt.RealCost
		out.RealCost = &rc
	}
	return out
}

func (s *Store) ListProjectTransactions(acc, projectID string) ([]core.ProjectTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.ledgerLocked(acc)
	if err != nil {
		return nil, err
	}
	if _, p := l.project(projectID); p == nil {
		return nil, ErrNotFound
	}
	out := []core.ProjectTransaction{}
	for _, pt := range l.projectTx {
		if pt.ProjectID == projectID {
			out = append(out, copyProjectTx(pt))
		}
	}
	return out, nil
}

func (s *Store) CreateProjectTransaction(acc, projectID string, in core.ProjectTransactionInput) (core.ProjectTransaction, error) {
	if err := in.Validate(); err != nil {
		return core.ProjectTransaction{}, BadRequest(err.Error())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.ledgerLocked(acc)
	if err != nil {
		return core.ProjectTransaction{}, err
	}
	if _, p := l.project(projectID); p == nil {
		return core.ProjectTransaction{}, ErrNotFound
	}
	pt := &core.ProjectTransaction{ID: uuid.NewString(), ProjectID: projectID, AccountID: acc}
	applyProjectTx(pt, in)
	l.projectTx = append(l.projectTx, pt)
	return copyProjectTx(pt), nil
}

func (l *ledger) projectTransaction(projectID, id string) (int, *core.ProjectTransaction) {
	for i, pt := range l.projectTx {
		if pt.ID == id && pt.ProjectID == projectID {
			return i, pt
		}
	}
	return -1, nil
}

func (s *Store) UpdateProjectTransaction(acc, projectID, id string, in core.ProjectTransactionInput) (core.ProjectTransaction, error) {
	if err := in.Validate(); err != nil {
		return core.ProjectTransaction{}, BadRequest(err.Error())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.ledgerLocked(acc)
	if err != nil {
		return core.ProjectTransaction{}, err
	}
	_, pt := l.projectTransaction(projectID, id)
	if pt == nil {
		return core.ProjectTransaction{}, ErrNotFound
	}
	applyProjectTx(pt, in)
	return copyProjectTx(pt), nil
}

func applyProjectTx(pt *core.ProjectTransaction, in core.ProjectTransactionInput) {
	pt.Name = in.Name
	pt.Description = in.Description
	pt.EstimatedCost = in.EstimatedCost
	pt.RealCost = nil
	if in.RealCost != nil {
		rc := *in.RealCost
		pt.RealCost = &rc
	}
}

func (s *Store) DeleteProjectTransaction(acc, projectID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.ledgerLocked(acc)
	if err != nil {
		return err
	}
	i, _ := l.projectTransaction(projectID, id)
	if i < 0 {
		return ErrNotFound
	}
	l.projectTx = append(l.projectTx[:i], l.projectTx[i+1:]...)
	return nil
}
