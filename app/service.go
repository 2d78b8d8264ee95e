package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	sessionapi "github.com/kilianp07/coopt/api/session"
	"github.com/kilianp07/coopt/auth"
	"github.com/kilianp07/coopt/config"
	"github.com/kilianp07/coopt/core/history"
	coremetrics "github.com/kilianp07/coopt/core/metrics"
	"github.com/kilianp07/coopt/core/monitoring"
	"github.com/kilianp07/coopt/core/session"
	"github.com/kilianp07/coopt/infra/logger"
	"github.com/kilianp07/coopt/infra/metrics"
	infmon "github.com/kilianp07/coopt/infra/monitoring"
	"github.com/kilianp07/coopt/infra/mqtt"
	infraopt "github.com/kilianp07/coopt/infra/optimizer"
)

// Service wires the optimization session to its collaborators.
type Service struct {
	Session   session.Controller
	History   history.Store
	Monitor   monitoring.Monitor
	Publisher *mqtt.StatePublisher

	cfg     *config.Config
	log     logger.Logger
	handler http.Handler
	closers []func()
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	if err := logger.SetLevel(cfg.Log.Level); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	logg := logger.New("service")

	mon, err := infmon.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	store, err := history.Open(cfg.History)
	if err != nil {
		return nil, fmt.Errorf("history store: %w", err)
	}

	svc := &Service{History: store, Monitor: mon, cfg: cfg, log: logg}
	if store != nil {
		svc.closers = append(svc.closers, func() {
			if err := store.Close(); err != nil {
				logg.Errorf("close history: %v", err)
			}
		})
	}

	ctrl, err := newController(cfg, sink, mon, store)
	if err != nil {
		svc.Close()
		return nil, err
	}
	svc.Session = ctrl
	if c, ok := ctrl.(interface{ Close() }); ok {
		svc.closers = append(svc.closers, c.Close)
	}

	if cfg.MQTT.Enabled() {
		pub, err := mqtt.NewStatePublisher(cfg.MQTT, mon)
		if err != nil {
			svc.Close()
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		svc.Publisher = pub
		svc.closers = append(svc.closers, pub.Disconnect)
	}

	svc.handler = sessionapi.NewHandler(ctrl, store, cfg.API.Token)
	return svc, nil
}

// newController builds the simulated session for the simulated variant and
// an HTTP-backed session otherwise.
func newController(cfg *config.Config, sink coremetrics.MetricsSink, mon monitoring.Monitor, store history.Store) (session.Controller, error) {
	ep := cfg.Optimizer.Endpoint()
	if ep.Simulated() {
		return session.NewSimulation(cfg.Session.SimulatedDelay(), logger.New("simulation")), nil
	}
	var clientOpts []infraopt.Option
	if cfg.Optimizer.Auth.Enabled() {
		clientOpts = append(clientOpts, infraopt.WithAuthorizer(auth.NewClientCred(context.Background(), cfg.Optimizer.Auth)))
	}
	client, err := infraopt.NewHTTPClient(cfg.Optimizer.BaseURL, ep, cfg.Optimizer.Timeout(), clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("optimizer client: %w", err)
	}
	opts := []session.Option{
		session.WithFailurePolicy(cfg.Session.Policy()),
		session.WithMetrics(sink),
		session.WithMonitor(mon),
	}
	if store != nil {
		opts = append(opts, session.WithHistory(store))
	}
	return session.New(client, ep.Name, logger.New("session"), opts...), nil
}

// Handler returns the session API.
func (s *Service) Handler() http.Handler { return s.handler }

// Run serves the API, the metrics endpoint and the MQTT mirror until the
// context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	defer s.Monitor.Recover()

	if s.Publisher != nil {
		go s.Publisher.Run(ctx, s.Session)
	}
	if s.cfg.Metrics.PrometheusEnabled() && s.cfg.Metrics.PrometheusAddr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusAddr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	srv := &http.Server{Addr: s.cfg.API.Address, Handler: s.handler, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("api shutdown: %v", err)
		}
		cancel()
	}()
	s.log.Infof("session API listening on %s (optimizer %s, variant %s)", s.cfg.API.Address, s.cfg.Optimizer.BaseURL, s.cfg.Optimizer.Variant)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close releases resources held by the service in reverse order.
func (s *Service) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
	if s.Monitor != nil {
		s.Monitor.Flush(2 * time.Second)
	}
}
