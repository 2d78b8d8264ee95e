package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/coopt/core/history"
	"github.com/kilianp07/coopt/core/metrics"
	"github.com/kilianp07/coopt/core/optimizer"
)

func sampleRecords() []history.Record {
	ts := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return []history.Record{
		{Timestamp: ts, RequestID: "r1", Objective: optimizer.ObjectiveHeavy, Endpoint: "methods", Outcome: metrics.OutcomeSuccess, LatencyMS: 12.5, Result: optimizer.NewResult([]byte(`{"ids":{}}`))},
		{Timestamp: ts.Add(time.Minute), RequestID: "r2", Objective: optimizer.ObjectiveProportional, Endpoint: "methods", Outcome: metrics.OutcomeStatus, StatusCode: 503, LatencyMS: 3, Error: "optimizer returned status 503"},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRecords()))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, CSVHeader, rows[0])
	assert.Equal(t, []string{"2025-03-01T10:00:00Z", "r1", "heavy", "methods", "success", "", "12.5", ""}, rows[1])
	assert.Equal(t, "503", rows[2][5])
	assert.Equal(t, "optimizer returned status 503", rows[2][7])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, sampleRecords()))
	var got []history.Record
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "r2", got[1].RequestID)

	buf.Reset()
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", f.ContentType())
	assert.Equal(t, "application/json", FormatJSON.ContentType())
	_, err = ParseFormat("xml")
	assert.Error(t, err)
}
