package optimizer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Schema validates a response body before it is accepted as a Result.
type Schema interface {
	Validate(body []byte) error
}

// ModelInsight is returned by the methods endpoint. Maps are keyed by
// household id.
type ModelInsight struct {
	IDs         map[int]float64 `json:"ids"`
	CostsMean   map[int]float64 `json:"costsMean"`
	HoursMean   map[int]float64 `json:"hoursMean"`
	KmsMean     map[int]float64 `json:"kmsMean"`
	CostsCIHalf map[int]float64 `json:"costsCIHalf"`
	HoursCIHalf map[int]float64 `json:"hoursCIHalf"`
	KmsCIHalf   map[int]float64 `json:"kmsCIHalf"`
	Overshoots  map[int]float64 `json:"overshoots"`
	BaseFee     *float64        `json:"baseFee"`
}

// MonthInsight is returned by the month endpoint.
type MonthInsight struct {
	IDs       map[int]float64 `json:"ids"`
	Costs     map[int]float64 `json:"costs"`
	Hours     map[int]float64 `json:"hours"`
	Kms       map[int]float64 `json:"kms"`
	Overshoot float64         `json:"overshoot"`
	BaseFee   *float64        `json:"baseFee"`
}

// InsightSchema accepts ModelInsight bodies carrying ids and baseFee.
type InsightSchema struct{}

func (InsightSchema) Validate(body []byte) error {
	var m ModelInsight
	if err := json.Unmarshal(body, &m); err != nil {
		return err
	}
	return requireFields(m.IDs, m.BaseFee)
}

// MonthSchema accepts MonthInsight bodies carrying ids and baseFee.
type MonthSchema struct{}

func (MonthSchema) Validate(body []byte) error {
	var m MonthInsight
	if err := json.Unmarshal(body, &m); err != nil {
		return err
	}
	return requireFields(m.IDs, m.BaseFee)
}

// ObjectSchema accepts any JSON object.
type ObjectSchema struct{}

func (ObjectSchema) Validate(body []byte) error {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return errors.New("body is not a JSON object")
	}
	var m map[string]json.RawMessage
	return json.Unmarshal(body, &m)
}

func requireFields(ids map[int]float64, baseFee *float64) error {
	if ids == nil {
		return fmt.Errorf("missing field %q", "ids")
	}
	if baseFee == nil {
		return fmt.Errorf("missing field %q", "baseFee")
	}
	return nil
}
