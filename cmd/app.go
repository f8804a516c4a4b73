package cmd

import (
	"context"
	"io"
	"net/http"

	"github.com/b13-niass/esign/auth"
	"github.com/b13-niass/esign/client"
	"github.com/b13-niass/esign/config"
	"github.com/b13-niass/esign/db"
	"github.com/b13-niass/esign/metrics"
	"github.com/b13-niass/esign/pkg/clierr"
	"github.com/b13-niass/esign/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// app holds what a command needs once the root pre-run hook has wired it.
type app struct {
	cfg        *config.Config
	configPath string
	store      *session.Store
	api        *client.API
	auth       *auth.Service
	registry   *prometheus.Registry
	metrics    *metrics.Metrics

	dumpMetrics bool
	dbOpen      bool
	cancel      context.CancelFunc
}

func (a *app) start(cmd *cobra.Command, opts *rootOptions) error {
	a.configPath = opts.configPath
	a.dumpMetrics = opts.metrics

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return clierr.New(clierr.Validation, err.Error(), err)
	}
	a.cfg = cfg

	if opts.timeout > 0 {
		ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
		a.cancel = cancel
		cmd.SetContext(ctx)
	}
	if annotated(cmd, annotationOffline) {
		return nil
	}

	if err := a.connect(cmd.Context()); err != nil {
		return err
	}
	if annotated(cmd, annotationAuth) && !a.auth.Authenticated(cmd.Context()) {
		return clierr.New(clierr.Auth, "not signed in, please run `esign login`", nil)
	}
	return nil
}

// connect opens the session database and builds the HTTP stack: metrics
// instrumentation at the bottom, then the refresh-aware auth transport for
// authenticated calls.
func (a *app) connect(ctx context.Context) error {
	db.Path = a.cfg.Database.Path
	if err := db.InitDB(); err != nil {
		return clierr.New(clierr.Internal, "failed to open the session database", err)
	}
	a.dbOpen = true

	store, err := session.Open(ctx, a.cfg.AccessTokenPersistStrategy)
	if err != nil {
		return clierr.New(clierr.Internal, "failed to load the session", err)
	}
	a.store = store

	a.registry, a.metrics = metrics.NewRegistry()
	client.SetDownloadRateLimit(a.cfg.Download.RateLimit)

	base := a.metrics.InstrumentRoundTripper(http.DefaultTransport)
	public := &http.Client{Transport: base, Timeout: a.cfg.Timeout}
	refresher := client.New(a.cfg.APIPrefix, public, public)

	coordOpts := []auth.Option{auth.WithRefreshTimeout(a.cfg.RefreshTimeout), auth.WithObserver(a.metrics)}
	if a.cfg.OrderedReplay {
		coordOpts = append(coordOpts, auth.WithOrderedReplay())
	}
	coordinator := auth.NewCoordinator(store, refresher, coordOpts...)
	authenticated := &http.Client{
		Transport: auth.NewTransport(base, store, coordinator, a.cfg.RefreshOnNetworkError),
		Timeout:   a.cfg.Timeout,
	}

	a.api = client.New(a.cfg.APIPrefix, authenticated, public)
	a.auth = auth.NewService(store, a.api)
	log.Debug().Str("api", a.cfg.APIPrefix).Str("strategy", a.cfg.AccessTokenPersistStrategy).Msg("Client ready")
	return nil
}

func (a *app) close(errOut io.Writer) {
	if a.dumpMetrics && a.registry != nil {
		if err := metrics.WriteText(errOut, a.registry); err != nil {
			log.Warn().Err(err).Msg("Failed to write metrics")
		}
	}
	if a.cancel != nil {
		a.cancel()
	}
	if a.dbOpen {
		if err := db.CloseDB(); err != nil {
			log.Error().Err(err).Msg("Failed to close the database.")
		}
		a.dbOpen = false
	}
}

func (a *app) workers() int {
	if a.cfg == nil || a.cfg.Workers < 1 {
		return 1
	}
	return a.cfg.Workers
}
