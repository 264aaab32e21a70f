// Package cli is the dealctl terminal front end. Every command is a view over
// the resource client, the session and the deal wizard.
package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	nethttp "net/http"
	"time"

	"deal-analyzer-client/internal/api"
	"deal-analyzer-client/internal/cache"
	"deal-analyzer-client/internal/common/config"
	"deal-analyzer-client/internal/common/errors"
	"deal-analyzer-client/internal/common/http"
	"deal-analyzer-client/internal/common/logger"
	"deal-analyzer-client/internal/common/metrics"
	"deal-analyzer-client/internal/common/observability"
	"deal-analyzer-client/internal/models"
	"deal-analyzer-client/internal/render"
	"deal-analyzer-client/internal/session"
	"deal-analyzer-client/internal/wizard"
)

// Options overrides the pieces NewApp would otherwise build from config.
type Options struct {
	Config *config.Config
	Tokens session.TokenStore
	Logger logger.Logger
	// In replaces stdin; prompts are only shown when stdin is a terminal.
	In io.Reader
}

// App holds the per-invocation dependencies shared by all commands.
type App struct {
	Config  *config.Config
	Log     logger.Logger
	Client  *api.Client
	Session *session.Store
	Guard   *session.Guard
	Errors  *errors.ErrorHandler

	out        io.Writer
	tokens     session.TokenStore
	store      *cache.Store
	obs        *observability.Observability
	metricsSrv *nethttp.Server
}

func NewApp(opts Options, out io.Writer) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	}

	tokens := opts.Tokens
	if tokens == nil {
		built, err := session.NewTokenStore(cfg.Session, cfg.Redis)
		if err != nil {
			return nil, err
		}
		tokens = built
	}

	a := &App{Config: cfg, Log: log, out: out, tokens: tokens, Errors: errors.NewErrorHandler(log)}

	if cfg.Metrics.Enabled {
		a.obs = observability.New(cfg.App.Name, nil, log)
		a.startMetrics(cfg.Metrics.Address)
	}

	transport, err := http.NewClient(http.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   config.GetDuration(cfg.API.Timeout),
		UserAgent: cfg.API.UserAgent,
	}, session.Bearer(tokens), log, a.obs)
	if err != nil {
		return nil, err
	}

	a.store = cache.NewStore(log, a.obs)
	a.Client = api.NewClient(transport, a.store, log)
	a.Session = session.New(a.Client, tokens, log)
	a.Guard = session.NewGuard(a.Session, log)
	transport.OnUnauthorized(a.Session.HandleUnauthorized)

	log.Debug("dealctl initialised", map[string]interface{}{
		"baseUrl":    cfg.API.BaseURL,
		"tokenStore": cfg.Session.TokenStore,
	})
	return a, nil
}

// Close flushes background work and releases resources.
func (a *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = a.store.Settle(ctx)
	a.store.Close()

	if a.metricsSrv != nil {
		_ = a.metricsSrv.Shutdown(ctx)
	}
	a.obs.Shutdown()
	if c, ok := a.tokens.(io.Closer); ok {
		_ = c.Close()
	}
	_ = a.Log.Sync()
}

// NewWizard builds a wizard whose notifications are printed as they happen.
func (a *App) NewWizard() *wizard.Machine {
	return wizard.New(a.Client, a.notifier(), a.Log, a.obs)
}

// NewWizardForDeal builds a wizard that analyzes an existing deal.
func (a *App) NewWizardForDeal(deal models.Deal) *wizard.Machine {
	return wizard.NewForDeal(deal, a.Client, a.notifier(), a.Log, a.obs)
}

func (a *App) notifier() wizard.Notifier {
	return wizard.NotifierFunc(func(n wizard.Notification) {
		a.println(render.Notification(n))
	})
}

func (a *App) println(s string) {
	fmt.Fprintln(a.out, s)
}

// protect runs view behind the route guard and reports the outcome.
func (a *App) protect(ctx context.Context, action string, view session.View) error {
	err := a.Guard.Protect(ctx, view)
	if err == nil {
		return nil
	}
	var redirect *session.RedirectError
	if stderrors.As(err, &redirect) {
		a.println(render.Error(errors.NewPreconditionError("Not logged in. Run `dealctl login` first.")))
		return err
	}
	return a.fail(action, err)
}

// fail logs err once and prints it for the user.
func (a *App) fail(action string, err error) error {
	stdErr := a.Errors.Handle(action, err)
	a.println(render.Error(stdErr))
	return stdErr
}

func (a *App) startMetrics(addr string) {
	mux := nethttp.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	a.metricsSrv = &nethttp.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := a.metricsSrv.ListenAndServe(); err != nil && !stderrors.Is(err, nethttp.ErrServerClosed) {
			a.Log.Warn("Metrics server stopped", map[string]interface{}{"error": err.Error()})
		}
	}()
}
