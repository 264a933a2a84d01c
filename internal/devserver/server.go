// Package devserver is an in-memory implementation of the finance REST
// backend. It backs the end-to-end tests and local development.
package devserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"finsync/internal/log"
)

// Config tunes the server. The zero value is usable.
type Config struct {
	// RequestsPerMinute per client IP; zero disables limiting.
	RequestsPerMinute int
	// BcryptCost for password hashes; zero selects bcrypt's default.
	BcryptCost int
	// AllowOrigins for CORS; empty allows any origin.
	AllowOrigins []string
	Logger       *log.Logger
}

type Server struct {
	store    *Store
	engine   *gin.Engine
	logger   *log.Logger
	requests atomic.Int64
}

func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Discard()
	}
	s := &Server{
		store:  NewStore(cfg.BcryptCost),
		logger: logger.WithComponent(log.ComponentDevServer),
	}

	r := gin.New()
	r.Use(gin.Recovery(), trace(s.logger, &s.requests), securityHeaders())
	corsCfg := cors.Config{
		AllowOrigins:  cfg.AllowOrigins,
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", headerRequestID},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition", headerRequestID},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowOrigins) == 0 {
		corsCfg.AllowOrigins = nil
		corsCfg.AllowAllOrigins = true
	}
	r.Use(cors.New(corsCfg))
	if cfg.RequestsPerMinute > 0 {
		r.Use(newLimiter(cfg.RequestsPerMinute).middleware())
	}
	s.routes(r)
	s.engine = r
	return s
}

func (s *Server) routes(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	auth := r.Group("/auth")
	auth.POST("/sign-up", s.signUp)
	auth.POST("/sign-in", s.signIn)

	acc := r.Group("/account/:accountId", requireAuth(s.store))

	acc.GET("/wallet", s.listWallets)
	acc.POST("/wallet", s.createWallet)
	acc.PUT("/wallet/:walletId", s.updateWallet)
	acc.PUT("/wallet/:walletId/automaticIncome", s.updateAutomaticIncome)
	acc.POST("/wallet/:walletId/transaction", s.createTransaction)
	acc.PUT("/wallet/:walletId/transaction/:id", s.updateTransaction)
	acc.DELETE("/wallet/:walletId/transaction/:id", s.deleteTransaction)
	acc.POST("/wallet/:walletId/goal", s.createGoal)
	acc.PUT("/wallet/:walletId/goal/:id", s.updateGoal)

	acc.GET("/transaction", s.listTransactions)

	acc.GET("/label", s.listLabels)
	acc.POST("/label", s.createLabel)
	acc.PUT("/label/:id", s.updateLabel)
	acc.POST("/label/:id/archive", s.archiveLabel)

	acc.GET("/goal", s.listGoals)
	acc.POST("/goal/:id/archive", s.archiveGoal)

	acc.GET("/project", s.listProjects)
	acc.POST("/project", s.createProject)
	acc.GET("/project/:id", s.getProject)
	acc.PUT("/project/:id", s.updateProject)
	acc.DELETE("/project/:id", s.deleteProject)
	acc.POST("/project/:id/archive", s.archiveProject)
	acc.GET("/project/:id/statistics", s.statistics)
	acc.GET("/project/:id/pdf/:kind", s.pdf)
	acc.GET("/project/:id/transaction", s.listProjectTransactions)
	acc.POST("/project/:id/transaction", s.createProjectTransaction)
	acc.PUT("/project/:id/transaction/:txId", s.updateProjectTransaction)
	acc.DELETE("/project/:id/transaction/:txId", s.deleteProjectTransaction)
}

// Handler exposes the router, e.g. for httptest.NewServer.
func (s *Server) Handler() http.Handler { return s.engine }

// Store gives direct access to the backing state.
func (s *Server) Store() *Store { return s.store }

// Requests is the number of requests served so far.
func (s *Server) Requests() int64 { return s.requests.Load() }

// Run serves on addr until ctx is cancelled, then drains in-flight
// requests for up to five seconds.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("Dev server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("Dev server shutting down", log.FieldOperation, log.OpShutdown)
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
