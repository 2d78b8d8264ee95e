// Package history journals optimize outcomes. The journal is an audit
// trail: session state is never rebuilt from it.
package history

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kilianp07/coopt/core/metrics"
	"github.com/kilianp07/coopt/core/optimizer"
)

// Record captures one optimize request and how it ended.
type Record struct {
	Timestamp  time.Time           `json:"timestamp"`
	RequestID  string              `json:"request_id"`
	Objective  optimizer.Objective `json:"objective"`
	Endpoint   string              `json:"endpoint"`
	Outcome    metrics.Outcome     `json:"outcome"`
	StatusCode int                 `json:"status_code,omitempty"`
	LatencyMS  float64             `json:"latency_ms"`
	Error      string              `json:"error,omitempty"`
	Result     optimizer.Result    `json:"result"`
}

// Query filters records. Zero fields match everything; Limit keeps the most
// recent records.
type Query struct {
	Start     time.Time
	End       time.Time
	Objective optimizer.Objective
	Outcome   metrics.Outcome
	Limit     int
}

// Match reports whether r satisfies q, ignoring Limit.
func (q Query) Match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Objective != "" && r.Objective != q.Objective {
		return false
	}
	if q.Outcome != "" && r.Outcome != q.Outcome {
		return false
	}
	return true
}

// Store persists records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// Config selects and tunes the journal backend.
type Config struct {
	// Backend is "memory", "jsonl", "sqlite" or "none".
	Backend string `json:"backend"`
	// Path is the file location for the jsonl and sqlite backends.
	Path string `json:"path"`
	// MaxSizeMB triggers jsonl rotation when the file exceeds this size.
	MaxSizeMB int `json:"max_size_mb"`
	// MaxBackups limits the number of rotated jsonl files kept.
	MaxBackups int `json:"max_backups"`
	// MaxAgeDays removes rotated jsonl files older than this.
	MaxAgeDays int `json:"max_age_days"`
	// MaxRecords bounds the memory backend; the oldest records are evicted.
	MaxRecords int `json:"max_records"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "memory"
	}
	if c.Path == "" {
		switch c.Backend {
		case "jsonl":
			c.Path = "history.jsonl"
		case "sqlite":
			c.Path = "history.db"
		}
	}
	if c.MaxSizeMB <= 0 {
		c.MaxSizeMB = 10
	}
	if c.MaxRecords <= 0 {
		c.MaxRecords = DefaultMaxRecords
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.MaxRecords < 0 {
		return fmt.Errorf("history max_records cannot be negative")
	}
	switch c.Backend {
	case "memory", "none":
		return nil
	case "jsonl", "sqlite":
		if c.Path == "" {
			return fmt.Errorf("history path is required for backend %s", c.Backend)
		}
		return nil
	default:
		return fmt.Errorf("unknown history backend %s", c.Backend)
	}
}

// Open creates the store described by cfg. The "none" backend returns nil.
func Open(cfg Config) (Store, error) {
	switch cfg.Backend {
	case "none":
		return nil, nil
	case "", "memory":
		return NewMemoryStore(cfg.MaxRecords), nil
	case "jsonl":
		return NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown history backend %s", cfg.Backend)
	}
}

// finish orders records chronologically and applies the limit.
func finish(recs []Record, limit int) []Record {
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Timestamp.Before(recs[j].Timestamp) })
	if limit > 0 && len(recs) > limit {
		recs = recs[len(recs)-limit:]
	}
	return recs
}
