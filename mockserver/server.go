package mockserver

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/coopt/config"
	"github.com/kilianp07/coopt/infra/logger"
)

// Server exposes the optimizer endpoints over HTTP.
type Server struct {
	addr   string
	cars   int
	coop   Cooperative
	log    logger.Logger
	srv    *http.Server
	total  *prometheus.CounterVec
	failed prometheus.Counter
}

// NewServer creates a mock service using the default Prometheus registerer.
func NewServer(cfg config.MockConfig) *Server {
	return NewServerWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewServerWithRegistry simulates the cooperative once and registers metrics
// on reg. If reg is nil the default registerer is used.
func NewServerWithRegistry(cfg config.MockConfig, reg prometheus.Registerer) *Server {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	cfg.SetDefaults()
	log := logger.New("mock-optimizer")

	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mock_optimizer_requests_total",
		Help: "Total requests served by the mock optimizer",
	}, []string{"route"})
	failed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mock_optimizer_bad_requests_total",
		Help: "Requests rejected by the mock optimizer",
	})
	if err := reg.Register(total); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if exist, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				total = exist
			} else {
				log.Errorf("existing collector for mock_optimizer_requests_total has wrong type %T", are.ExistingCollector)
			}
		}
	}
	if err := reg.Register(failed); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if exist, ok := are.ExistingCollector.(prometheus.Counter); ok {
				failed = exist
			} else {
				log.Errorf("existing collector for mock_optimizer_bad_requests_total has wrong type %T", are.ExistingCollector)
			}
		}
	}

	coop := Simulate(DefaultProfiles, cfg.Clusters, cfg.Months, cfg.Seed)
	log.Infof("simulated %d households over %d months", coop.Households, len(coop.Months))
	return &Server{
		addr:   cfg.Address,
		cars:   cfg.Cars,
		coop:   coop,
		log:    log,
		total:  total,
		failed: failed,
	}
}

// Handler returns the routes of the service.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("pong")); err != nil {
			s.log.Errorf("write pong: %v", err)
		}
	})
	mux.HandleFunc("/methods/all", s.handle("methods", func(t Tariff) any { return Insight(s.coop, t, s.cars) }))
	mux.HandleFunc("/month", s.handle("month", func(t Tariff) any { return Month(s.coop, t, s.cars) }))
	return cors(mux)
}

func (s *Server) handle(route string, build func(Tariff) any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			s.failed.Inc()
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		weights, err := parseWeights(r)
		if err != nil {
			s.failed.Inc()
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.total.WithLabelValues(route).Inc()
		s.log.Debugw("pricing request", map[string]any{
			"route":           route,
			"heavy":           weights.Heavy,
			"proportionality": weights.Proportionality,
			"overall":         weights.Overall,
		})
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(build(TariffFor(weights))); err != nil {
			s.log.Errorf("encode %s response: %v", route, err)
		}
	}
}

// parseWeights reads heavy and proportionality (default 0) and overall
// (default 0.2).
func parseWeights(r *http.Request) (Weights, error) {
	q := r.URL.Query()
	w := Weights{Overall: 0.2}
	for _, p := range []struct {
		key string
		dst *float64
	}{
		{"heavy", &w.Heavy},
		{"proportionality", &w.Proportionality},
		{"overall", &w.Overall},
	} {
		s := q.Get(p.key)
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return w, errors.New("invalid " + p.key + " weight")
		}
		*p.dst = v
	}
	return w, nil
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if r.Method == http.MethodOptions {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Addr returns the listening address once Start has been called.
func (s *Server) Addr() string { return s.addr }

// Start runs the HTTP server until the context is canceled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve runs the HTTP server on ln until the context is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.addr = ln.Addr().String()
	s.srv = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("shutdown server: %v", err)
		}
		cancel()
	}()
	s.log.Infof("mock optimizer listening on %s", s.addr)
	err := s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
