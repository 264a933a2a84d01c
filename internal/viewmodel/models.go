package viewmodel

import (
	"finsync/internal/cache"
	"finsync/internal/log"
	"finsync/internal/repository"
	"finsync/internal/session"
)

// Models is the full set of view-models sharing one cache and session.
type Models struct {
	Auth                *Auth
	Wallets             *Wallets
	Transactions        *Transactions
	Labels              *Labels
	Goals               *Goals
	Projects            *Projects
	ProjectTransactions *ProjectTransactions
	Dashboard           *Dashboard

	unbind func()
}

func New(c *cache.Coordinator, store *session.Store, vault *session.Vault, repos *repository.Repositories, logger *log.Logger) *Models {
	m := &Models{
		Auth:                NewAuth(repos.Auth, store, vault, logger),
		Wallets:             NewWallets(c, store, repos.Wallets),
		Transactions:        NewTransactions(c, store, repos.Transactions),
		Labels:              NewLabels(c, store, repos.Labels),
		Goals:               NewGoals(c, store, repos.Goals),
		Projects:            NewProjects(c, store, repos.Projects),
		ProjectTransactions: NewProjectTransactions(c, store, repos.ProjectTransactions),
	}
	m.Dashboard = NewDashboard(m.Wallets, m.Labels, m.Goals, m.Projects, m.Transactions)
	m.unbind = BindSession(store, c)
	return m
}

// Close detaches the models from the session.
func (m *Models) Close() {
	if m.unbind != nil {
		m.unbind()
	}
}
