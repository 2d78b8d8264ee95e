package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/coopt/config"
	"github.com/kilianp07/coopt/core/session"
	"github.com/kilianp07/coopt/mockserver"
)

func testConfig(t *testing.T, variant, baseURL string) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Optimizer.Variant = variant
	cfg.Optimizer.BaseURL = baseURL
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestServiceAgainstMock(t *testing.T) {
	mock := mockserver.NewServerWithRegistry(config.MockConfig{}, prometheus.NewRegistry())
	upstream := httptest.NewServer(mock.Handler())
	defer upstream.Close()

	svc, err := New(testConfig(t, "methods", upstream.URL))
	require.NoError(t, err)
	defer svc.Close()
	_, ok := svc.Session.(*session.Session)
	require.True(t, ok, "expected HTTP-backed session, got %T", svc.Session)

	api := httptest.NewServer(svc.Handler())
	defer api.Close()

	resp, err := http.Post(api.URL+"/api/session/optimize?objective=heavy", "", nil)
	require.NoError(t, err)
	var snap session.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, session.StateReady, snap.State)
	assert.False(t, snap.Result.IsEmpty())

	resp, err = http.Get(api.URL + "/api/session/history")
	require.NoError(t, err)
	var recs []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&recs))
	resp.Body.Close()
	require.Len(t, recs, 1)
	assert.Equal(t, "success", recs[0]["outcome"])
	assert.Equal(t, "methods", recs[0]["endpoint"])
}

func TestServiceUnreachableOptimizerKeepsEmpty(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	url := upstream.URL
	upstream.Close()

	svc, err := New(testConfig(t, "month", url))
	require.NoError(t, err)
	defer svc.Close()

	api := httptest.NewServer(svc.Handler())
	defer api.Close()
	resp, err := http.Post(api.URL+"/api/session/optimize?objective=proportional", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.False(t, svc.Session.HasResult())
}

func TestServiceSimulatedVariant(t *testing.T) {
	svc, err := New(testConfig(t, "simulated", ""))
	require.NoError(t, err)
	defer svc.Close()
	_, ok := svc.Session.(*session.Simulation)
	assert.True(t, ok, "expected simulation, got %T", svc.Session)
	assert.False(t, svc.Session.Loading())
}
