package mockserver

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/coopt/config"
	core "github.com/kilianp07/coopt/core/optimizer"
	"github.com/kilianp07/coopt/core/session"
	"github.com/kilianp07/coopt/infra/logger"
	infraopt "github.com/kilianp07/coopt/infra/optimizer"
)

func TestSimulateDeterministic(t *testing.T) {
	a := Simulate(DefaultProfiles, []int{3, 3, 12}, 6, 42)
	b := Simulate(DefaultProfiles, []int{3, 3, 12}, 6, 42)
	c := Simulate(DefaultProfiles, []int{3, 3, 12}, 6, 7)
	assert.Equal(t, 18, a.Households)
	require.Len(t, a.Months, 6)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	var hours float64
	for _, m := range a.Months {
		require.Len(t, m, 18)
		for _, u := range m {
			assert.GreaterOrEqual(t, u.Hours, 0.0)
			assert.GreaterOrEqual(t, u.Km, 0.0)
			hours += u.Hours
		}
	}
	assert.Greater(t, hours, 0.0)
}

func TestTariffBoundsAndDirection(t *testing.T) {
	base := TariffFor(Weights{Overall: 0.2})
	heavy := TariffFor(Weights{Heavy: 1, Overall: 0.2})
	prop := TariffFor(Weights{Proportionality: 1, Overall: 0.2})
	assert.Less(t, heavy.HourRate, base.HourRate)
	assert.Greater(t, heavy.HeavyDiscount, base.HeavyDiscount)
	assert.Greater(t, prop.HeavyThreshold, base.HeavyThreshold)

	extreme := TariffFor(Weights{Heavy: 100, Proportionality: -100, Overall: 1000})
	assert.Equal(t, 1.5, extreme.HourRate)
	assert.Equal(t, 0.10, extreme.KmRate)
	assert.Equal(t, 0.0, extreme.HeavyThreshold)
	assert.Equal(t, 0.40, extreme.HeavyDiscount)
	assert.Equal(t, 100.0, extreme.BaseFee)

	tr := Tariff{BaseFee: 25, HourRate: 3, KmRate: 0.3, HeavyThreshold: 10, HeavyDiscount: 0.1}
	assert.InDelta(t, 25+3*12+0.3*100-0.1*3*2, tr.Cost(Usage{Hours: 12, Km: 100}), 1e-9)
	assert.InDelta(t, 25.0, tr.Cost(Usage{}), 1e-9)
}

func TestInsightSummaries(t *testing.T) {
	coop := Cooperative{Households: 1, Months: [][]Usage{{{Hours: 2, Km: 10}}, {{Hours: 4, Km: 30}}}}
	tr := Tariff{BaseFee: 20, HourRate: 1, KmRate: 1}
	in := Insight(coop, tr, 1)
	assert.Equal(t, 3.0, in.HoursMean[0])
	assert.Equal(t, 20.0, in.KmsMean[0])
	// t(0.975, 1) = 12.706, std = sqrt(2), n = 2
	assert.InDelta(t, 12.71, in.HoursCIHalf[0], 0.01)
	assert.Equal(t, 43.0, in.CostsMean[0])
	assert.Equal(t, 43.0-LeasePerCarPerMonth, in.Overshoots[0])
	require.NotNil(t, in.BaseFee)
	assert.Equal(t, 20.0, *in.BaseFee)

	m := Month(coop, tr, 1)
	assert.Equal(t, 54.0, m.Costs[0])
	assert.Equal(t, 54.0-LeasePerCarPerMonth, m.Overshoot)
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServerWithRegistry(config.MockConfig{}, prometheus.NewRegistry())
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv
}

func TestEndpointsSatisfySchemas(t *testing.T) {
	s, srv := newTestServer(t)
	for _, ep := range []core.Endpoint{core.MethodsEndpoint(), core.MonthEndpoint()} {
		c, err := infraopt.NewHTTPClient(srv.URL, ep, time.Second, infraopt.WithLogger(logger.NopLogger{}))
		require.NoError(t, err)
		for _, o := range core.Objectives {
			res, err := c.Fetch(context.Background(), o)
			require.NoError(t, err, "%s %s", ep.Name, o)
			assert.False(t, res.IsEmpty())
		}
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(s.total.WithLabelValues("methods")))
	assert.Equal(t, 2.0, testutil.ToFloat64(s.total.WithLabelValues("month")))
}

func TestObjectivesChangePrices(t *testing.T) {
	_, srv := newTestServer(t)
	c, err := infraopt.NewHTTPClient(srv.URL, core.MethodsEndpoint(), time.Second, infraopt.WithLogger(logger.NopLogger{}))
	require.NoError(t, err)
	heavy, err := c.Fetch(context.Background(), core.ObjectiveHeavy)
	require.NoError(t, err)
	prop, err := c.Fetch(context.Background(), core.ObjectiveProportional)
	require.NoError(t, err)
	assert.False(t, heavy.Equal(prop))

	var a, b core.ModelInsight
	require.NoError(t, heavy.Decode(&a))
	require.NoError(t, prop.Decode(&b))
	assert.Len(t, a.IDs, 18)
	assert.Equal(t, a.HoursMean, b.HoursMean, "usage does not depend on the weights")
}

func TestBadWeightsAndCORS(t *testing.T) {
	s, srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/month?heavy=lots")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.failed))

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/methods/all", nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	resp, err = http.Post(srv.URL+"/methods/all", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestDefaultOverall(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/month?heavy=1", nil)
	w, err := parseWeights(req)
	require.NoError(t, err)
	assert.Equal(t, Weights{Heavy: 1, Overall: 0.2}, w)
}

func TestServeAndShutdown(t *testing.T) {
	s := NewServerWithRegistry(config.MockConfig{}, prometheus.NewRegistry())
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Serve(ctx, ln) }()

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get("http://" + addr + "/ping")
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "pong", string(b))

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop")
	}
}

// The mock drives a real session end to end.
func TestSessionAgainstMock(t *testing.T) {
	_, srv := newTestServer(t)
	c, err := infraopt.NewHTTPClient(srv.URL, core.MonthEndpoint(), time.Second, infraopt.WithLogger(logger.NopLogger{}))
	require.NoError(t, err)
	s := session.New(c, core.VariantMonth, logger.NopLogger{})
	defer s.Close()
	res, err := s.Optimize(context.Background(), core.ObjectiveProportional)
	require.NoError(t, err)
	assert.True(t, s.HasResult())
	assert.True(t, res.Equal(s.CurrentResult()))
}
