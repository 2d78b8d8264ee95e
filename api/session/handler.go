// Package session exposes the optimization session over HTTP.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/kilianp07/coopt/core/history"
	"github.com/kilianp07/coopt/core/metrics"
	"github.com/kilianp07/coopt/core/optimizer"
	coresession "github.com/kilianp07/coopt/core/session"
	"github.com/kilianp07/coopt/infra/logger"
	"github.com/kilianp07/coopt/pkg/export"
)

type errorBody struct {
	Error string              `json:"error"`
	Kind  optimizer.ErrorKind `json:"kind,omitempty"`
}

// NewHandler returns the session API:
//
//	GET    /api/session           current snapshot
//	POST   /api/session/optimize  run one optimization (?objective=heavy|proportional)
//	DELETE /api/session           clear the session
//	GET    /api/session/history   journaled outcomes (?format=json|csv)
//
// Mutating routes and the history require "Authorization: Bearer <token>"
// when token is non-empty. store may be nil, in which case the history is
// always empty.
func NewHandler(ctrl coresession.Controller, store history.Store, token string) http.Handler {
	log := logger.New("session-api")
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/session", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, ctrl.Snapshot())
	})
	mux.HandleFunc("DELETE /api/session", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r, token) {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
			return
		}
		ctrl.Clear()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /api/session/optimize", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r, token) {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
			return
		}
		obj, err := optimizer.ParseObjective(r.URL.Query().Get("objective"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
		if _, err := ctrl.Optimize(r.Context(), obj); err != nil {
			writeJSON(w, statusFor(err), errorBody{Error: err.Error(), Kind: optimizer.KindOf(err)})
			return
		}
		writeJSON(w, http.StatusOK, ctrl.Snapshot())
	})
	mux.HandleFunc("GET /api/session/history", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r, token) {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
			return
		}
		q, err := parseQuery(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
		format := export.FormatJSON
		if v := r.URL.Query().Get("format"); v != "" {
			if format, err = export.ParseFormat(v); err != nil {
				writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
				return
			}
		}
		records := []history.Record{}
		if store != nil {
			recs, err := store.Query(r.Context(), q)
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
				return
			}
			if recs != nil {
				records = recs
			}
		}
		w.Header().Set("Content-Type", format.ContentType())
		if err := export.Write(w, format, records); err != nil {
			log.Errorf("write history: %v", err)
		}
	})
	return withCORS(mux)
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func authorized(r *http.Request, token string) bool {
	return token == "" || r.Header.Get("Authorization") == "Bearer "+token
}

// statusFor maps optimizer failures to 502 and an abandoned wait to 504.
func statusFor(err error) int {
	if optimizer.KindOf(err) != "" {
		return http.StatusBadGateway
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func parseQuery(r *http.Request) (history.Query, error) {
	v := r.URL.Query()
	var q history.Query
	if s := v.Get("start"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return q, errors.New("start must be RFC3339")
		}
		q.Start = t
	}
	if s := v.Get("end"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return q, errors.New("end must be RFC3339")
		}
		q.End = t
	}
	if s := v.Get("objective"); s != "" {
		o, err := optimizer.ParseObjective(s)
		if err != nil {
			return q, err
		}
		q.Objective = o
	}
	switch o := metrics.Outcome(v.Get("outcome")); o {
	case "", metrics.OutcomeSuccess, metrics.OutcomeNetwork, metrics.OutcomeStatus, metrics.OutcomeMalformed:
		q.Outcome = o
	default:
		return q, errors.New("unknown outcome " + strconv.Quote(string(o)))
	}
	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return q, errors.New("limit must be a non-negative integer")
		}
		q.Limit = n
	}
	return q, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
