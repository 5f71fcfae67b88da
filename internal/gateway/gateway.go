// Package gateway serves watch mode's HTTP surface: a drift-aware health
// check, Prometheus metrics and an authenticated status endpoint.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Gateway is the watch-mode HTTP server.
type Gateway struct {
	config    Config
	logger    *slog.Logger
	state     *DriftState
	metrics   http.Handler
	runs      RunLister
	server    *http.Server
	addr      net.Addr
	startedAt time.Time
}

// Options carries the gateway's collaborators. State is required.
type Options struct {
	State   *DriftState
	Metrics http.Handler
	Runs    RunLister
	Logger  *slog.Logger
}

// New creates a Gateway. It does not listen until Start.
func New(cfg Config, opts Options) (*Gateway, error) {
	if opts.State == nil {
		return nil, errors.New("gateway: drift state is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	cfg.defaults()
	return &Gateway{
		config:  cfg,
		logger:  opts.Logger,
		state:   opts.State,
		metrics: opts.Metrics,
		runs:    opts.Runs,
	}, nil
}

// Handler returns the routed handler without starting a listener.
func (g *Gateway) Handler() http.Handler {
	return g.buildRouter()
}

// Start listens on the configured address and serves in the background.
func (g *Gateway) Start(ctx context.Context) error {
	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:         g.config.Listen,
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", g.config.Listen)
	if err != nil {
		return fmt.Errorf("gateway: listen %s: %w", g.config.Listen, err)
	}
	g.addr = ln.Addr()

	go func() {
		g.logger.Info("gateway listening", "addr", g.addr.String())
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address once Start has succeeded.
func (g *Gateway) Addr() net.Addr { return g.addr }

// Stop shuts the server down within the configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}
