// Package app builds the client object graph from configuration and owns
// its lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/api/option"

	"finsync/internal/cache"
	"finsync/internal/config"
	"finsync/internal/events"
	"finsync/internal/export"
	"finsync/internal/log"
	"finsync/internal/repository"
	"finsync/internal/session"
	"finsync/internal/storage"
	"finsync/internal/transport"
	"finsync/internal/viewmodel"
)

// App is one running client.
type App struct {
	Config   *config.Config
	Logger   *log.Logger
	Session  *session.Store
	Vault    *session.Vault
	Client   *transport.Client
	Repos    *repository.Repositories
	Cache    *cache.Coordinator
	Models   *viewmodel.Models
	Exporter *export.Exporter
	// Bridge is nil when no AMQP URL is configured or the broker was
	// unreachable at startup.
	Bridge *events.Bridge

	manager  *cache.Manager
	cleanups []func() error
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	once     sync.Once
	closeErr error
}

type options struct {
	gate       session.BiometricGate
	httpClient *http.Client
	secure     session.SecureStore
}

type Option func(*options)

// WithBiometricGate enables biometric sign-in through g.
func WithBiometricGate(g session.BiometricGate) Option {
	return func(o *options) { o.gate = g }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithSecureStore overrides the credential store chosen from config.
func WithSecureStore(s session.SecureStore) Option {
	return func(o *options) { o.secure = s }
}

// New wires every component. The session is restored from the credential
// store before New returns.
func New(ctx context.Context, cfg *config.Config, logger *log.Logger, opts ...Option) (_ *App, err error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if logger == nil {
		logger = log.Discard()
	}
	o := options{gate: session.NoGate{}}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg, Logger: logger.WithComponent(log.ComponentApp)}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	secure, err := a.secureStore(o)
	if err != nil {
		return nil, err
	}
	a.Session = session.New(secure, session.WithLogger(logger))
	a.Vault = session.NewVault(secure, o.gate)
	if err := a.Session.LoadStorage(ctx); err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}

	topts := []transport.Option{
		transport.WithTimeout(cfg.RequestTimeout),
		transport.WithReadRetries(cfg.ReadRetries),
		transport.WithLogger(logger),
	}
	if o.httpClient != nil {
		topts = append(topts, transport.WithHTTPClient(o.httpClient))
	}
	if cfg.LogoutOn401 {
		topts = append(topts, transport.WithUnauthorizedHandler(a.onUnauthorized))
	}
	a.Client, err = transport.New(cfg.APIURL, a.Session, topts...)
	if err != nil {
		return nil, fmt.Errorf("create transport: %w", err)
	}
	a.Repos = repository.New(a.Client)

	a.Cache = cache.New(
		cache.WithStaleTime(cfg.StaleTime),
		cache.WithGCTime(cfg.GCTime),
		cache.WithMaxEntries(cfg.MaxEntries),
		cache.WithLogger(logger),
	)
	a.manager = cache.NewManager(logger)
	a.manager.Register(a.Cache)
	a.manager.StartCleanup(cfg.CleanupInterval)

	a.Models = viewmodel.New(a.Cache, a.Session, a.Vault, a.Repos, logger)

	sink, err := a.exportSink(ctx)
	if err != nil {
		return nil, err
	}
	a.Exporter = export.NewExporter(a.Models.Projects, sink, logger)

	a.startEvents(logger)

	a.Logger.Info("Client initialized",
		log.FieldOperation, log.OpStartup,
		"api_url", cfg.APIURL,
		"durable_store", cfg.StorePath != "",
		"events_enabled", a.Bridge != nil,
		"authenticated", a.Session.IsAuthenticated())
	return a, nil
}

func (a *App) secureStore(o options) (session.SecureStore, error) {
	if o.secure != nil {
		return o.secure, nil
	}
	if a.Config.StorePath == "" {
		a.Logger.Debug("Using in-memory credential store")
		return session.NewMemoryStore(), nil
	}
	s, err := storage.NewSecureStore(a.Config.StorePath, a.Config.StoreKeyBytes(), a.Logger)
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}
	a.cleanups = append(a.cleanups, s.Close)
	return s, nil
}

func (a *App) exportSink(ctx context.Context) (export.Sink, error) {
	if a.Config.GCSBucket == "" {
		return export.FileSink{Dir: a.Config.ExportDir}, nil
	}
	var gopts []option.ClientOption
	if a.Config.GCSCredentials != "" {
		gopts = append(gopts, option.WithCredentialsFile(a.Config.GCSCredentials))
	}
	s, err := export.NewGCSSink(ctx, a.Config.GCSBucket, "", gopts...)
	if err != nil {
		return nil, fmt.Errorf("create GCS sink: %w", err)
	}
	a.cleanups = append(a.cleanups, s.Close)
	return s, nil
}

// startEvents is best effort: without a broker the client still works,
// it just never hears about changes made elsewhere.
func (a *App) startEvents(logger *log.Logger) {
	if a.Config.AMQPURL == "" {
		return
	}
	client, err := events.Dial(a.Config.AMQPURL, a.Config.AMQPExchange, a.Config.AMQPQueue, logger)
	if err != nil {
		a.Logger.Warn("Failed to initialize AMQP client, continuing without sync", log.FieldError, err)
		return
	}
	a.cleanups = append(a.cleanups, client.Close)
	a.Bridge = events.NewBridge(a.Cache, client, uuid.NewString(), logger)

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := client.Consume(ctx, a.Bridge.Handle); err != nil && !errors.Is(err, context.Canceled) {
			a.Logger.Error("Change consumer stopped", log.FieldError, err)
		}
	}()
	a.Logger.Info("Initialized AMQP client",
		"exchange", a.Config.AMQPExchange,
		"queue", a.Config.AMQPQueue,
		"origin", a.Bridge.Origin())
}

// onUnauthorized ends a session the server no longer accepts.
func (a *App) onUnauthorized(ctx context.Context, err *transport.Error) {
	if !a.Session.IsAuthenticated() {
		return
	}
	a.Logger.WarnContext(ctx, "Server rejected the session token, signing out",
		log.FieldPath, err.Path, log.FieldOperation, log.OpLogout)
	if lerr := a.Session.Logout(context.WithoutCancel(ctx)); lerr != nil {
		a.Logger.ErrorContext(ctx, "Failed to clear session", log.FieldError, lerr)
	}
}

// Close releases everything New acquired, in reverse order. It is safe to
// call more than once.
func (a *App) Close() error {
	a.once.Do(func() {
		if a.cancel != nil {
			a.cancel()
		}
		a.wg.Wait()
		if a.Bridge != nil {
			a.Bridge.Close()
		}
		if a.Models != nil {
			a.Models.Close()
		}
		if a.manager != nil {
			a.manager.Stop()
		}
		if a.Cache != nil {
			a.Cache.Close()
		}
		var errs []error
		for i := len(a.cleanups) - 1; i >= 0; i-- {
			if err := a.cleanups[i](); err != nil {
				errs = append(errs, err)
			}
		}
		a.closeErr = errors.Join(errs...)
		if a.Logger != nil {
			a.Logger.Info("Client closed", log.FieldOperation, log.OpShutdown)
		}
	})
	return a.closeErr
}
