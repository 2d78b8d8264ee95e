package optimizer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/coopt/auth"
	core "github.com/kilianp07/coopt/core/optimizer"
	"github.com/kilianp07/coopt/infra/logger"
)

func newTestClient(t *testing.T, url string, ep core.Endpoint) *HTTPClient {
	t.Helper()
	c, err := NewHTTPClient(url, ep, time.Second, WithLogger(logger.NopLogger{}))
	require.NoError(t, err)
	return c
}

func TestFetchHeavy(t *testing.T) {
	body := `{"ids":{"0":1},"baseFee":10,"costsMean":{"0":50}}`
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method %s", r.Method)
		}
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, core.MethodsEndpoint())
	res, err := c.Fetch(context.Background(), core.ObjectiveHeavy)
	require.NoError(t, err)
	assert.Equal(t, "/methods/all", gotPath)
	assert.Equal(t, "heavy=1&proportionality=0&overall=0.2", gotQuery)
	assert.Equal(t, body, string(res.Bytes()))
}

func TestFetchProportionalMonth(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"ids":{"0":0},"costs":{"0":30},"overshoot":0,"baseFee":25}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, core.MonthEndpoint())
	_, err := c.Fetch(context.Background(), core.ObjectiveProportional)
	require.NoError(t, err)
	assert.Equal(t, "heavy=0&proportionality=1&overall=5", gotQuery)
}

func TestFetchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "solver crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, core.MethodsEndpoint())
	_, err := c.Fetch(context.Background(), core.ObjectiveHeavy)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrStatus)
	var re *core.RequestError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, http.StatusInternalServerError, re.StatusCode)
	assert.Contains(t, err.Error(), "solver crashed")
}

func TestFetchMalformed(t *testing.T) {
	for name, body := range map[string]string{
		"not json":      `<html>`,
		"missing fee":   `{"ids":{"0":1}}`,
		"bad id":        `{"ids":{"x":1},"baseFee":1}`,
		"wrong payload": `[]`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()
			c := newTestClient(t, srv.URL, core.MethodsEndpoint())
			_, err := c.Fetch(context.Background(), core.ObjectiveHeavy)
			assert.ErrorIs(t, err, core.ErrMalformedResponse)
		})
	}
}

func TestFetchNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url, core.MethodsEndpoint())
	_, err := c.Fetch(context.Background(), core.ObjectiveHeavy)
	assert.ErrorIs(t, err, core.ErrNetwork)
	assert.Equal(t, core.KindNetwork, core.KindOf(err))
}

func TestFetchContextCanceled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := newTestClient(t, srv.URL, core.MethodsEndpoint())
	_, err := c.Fetch(ctx, core.ObjectiveHeavy)
	assert.ErrorIs(t, err, core.ErrNetwork)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewHTTPClientRejectsSimulated(t *testing.T) {
	_, err := NewHTTPClient("", core.SimulatedEndpoint(), 0)
	assert.Error(t, err)
}

func TestFetchWithClientCredentials(t *testing.T) {
	tokens := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"opt-token","token_type":"bearer","expires_in":3600}`))
	}))
	defer tokens.Close()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer opt-token" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"ids":{"0":1}}`))
	}))
	defer srv.Close()

	cred := auth.NewClientCred(context.Background(), auth.Conf{ClientID: "id", TokenURL: tokens.URL})
	c, err := NewHTTPClient(srv.URL, core.MethodsEndpoint(), time.Second, WithLogger(logger.NopLogger{}), WithAuthorizer(cred))
	require.NoError(t, err)
	_, err = c.Fetch(context.Background(), core.ObjectiveHeavy)
	require.NoError(t, err)
}

type failingAuth struct{}

func (failingAuth) Authorize(*http.Request) error { return errors.New("token endpoint down") }

func TestFetchAuthorizerFailure(t *testing.T) {
	c, err := NewHTTPClient("http://127.0.0.1:1", core.MonthEndpoint(), time.Second, WithLogger(logger.NopLogger{}), WithAuthorizer(failingAuth{}))
	require.NoError(t, err)
	_, err = c.Fetch(context.Background(), core.ObjectiveHeavy)
	require.Error(t, err)
	assert.Equal(t, core.KindNetwork, core.KindOf(err))
	assert.True(t, strings.Contains(err.Error(), "token endpoint down"))
}
