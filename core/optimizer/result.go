package optimizer

import (
	"bytes"
	"encoding/json"
)

// Result is the verbatim body returned by the optimizer. It is never
// interpreted beyond schema validation.
type Result struct {
	raw json.RawMessage
}

// NewResult wraps raw without copying it.
func NewResult(raw []byte) Result { return Result{raw: raw} }

// IsEmpty reports whether r is the empty default.
func (r Result) IsEmpty() bool { return len(r.raw) == 0 }

// Bytes returns the raw body.
func (r Result) Bytes() []byte { return r.raw }

// Equal reports whether both results hold the same bytes.
func (r Result) Equal(o Result) bool { return bytes.Equal(r.raw, o.raw) }

// Decode unmarshals the body into v.
func (r Result) Decode(v any) error { return json.Unmarshal(r.raw, v) }

// MarshalJSON emits the body unchanged, or an empty object for the default.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.IsEmpty() {
		return []byte("{}"), nil
	}
	return r.raw, nil
}

// UnmarshalJSON stores a copy of data.
func (r *Result) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("{}")) || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		r.raw = nil
		return nil
	}
	r.raw = append(json.RawMessage(nil), data...)
	return nil
}

func (r Result) String() string { return string(r.raw) }
