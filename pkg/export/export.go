// Package export writes journaled optimize outcomes for offline analysis.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/coopt/core/history"
)

// Format names an export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat accepts "json" or "csv".
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatCSV:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType is the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv"
	}
	return "application/json"
}

// Write encodes records to w in format f.
func Write(w io.Writer, f Format, records []history.Record) error {
	if f == FormatCSV {
		return WriteCSV(w, records)
	}
	return WriteJSON(w, records)
}

// WriteJSON writes the records as one JSON array.
func WriteJSON(w io.Writer, records []history.Record) error {
	if records == nil {
		records = []history.Record{}
	}
	return json.NewEncoder(w).Encode(records)
}

// CSVHeader lists the exported columns. The result body is left out.
var CSVHeader = []string{"timestamp", "request_id", "objective", "endpoint", "outcome", "status_code", "latency_ms", "error"}

// WriteCSV writes one row per record.
func WriteCSV(w io.Writer, records []history.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, r := range records {
		status := ""
		if r.StatusCode != 0 {
			status = strconv.Itoa(r.StatusCode)
		}
		rec := []string{
			r.Timestamp.UTC().Format(time.RFC3339Nano),
			r.RequestID,
			string(r.Objective),
			r.Endpoint,
			string(r.Outcome),
			status,
			strconv.FormatFloat(r.LatencyMS, 'f', -1, 64),
			r.Error,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
