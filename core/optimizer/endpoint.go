package optimizer

import (
	"net/url"
	"strings"
)

// DefaultBaseURL is where the optimizer service listens by default.
const DefaultBaseURL = "http://127.0.0.1:7999"

// Variant names of the known endpoint descriptors.
const (
	VariantMethods   = "methods"
	VariantMonth     = "month"
	VariantSimulated = "simulated"
)

// Param is a fixed query parameter appended after the objective flags.
type Param struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Endpoint describes one deployment of the optimizer service.
type Endpoint struct {
	Name   string
	Path   string
	Fixed  []Param
	Schema Schema
}

// Simulated reports whether the endpoint has no network side at all.
func (e Endpoint) Simulated() bool { return e.Path == "" }

// Query encodes the objective flags followed by the fixed parameters, in
// declaration order.
func (e Endpoint) Query(o Objective) string {
	heavy, prop := o.flags()
	var b strings.Builder
	b.WriteString("heavy=" + heavy)
	b.WriteString("&proportionality=" + prop)
	for _, p := range e.Fixed {
		b.WriteString("&" + url.QueryEscape(p.Key) + "=" + url.QueryEscape(p.Value))
	}
	return b.String()
}

// URL joins base, path and query for the objective.
func (e Endpoint) URL(base string, o Objective) string {
	return strings.TrimSuffix(base, "/") + e.Path + "?" + e.Query(o)
}

// MethodsEndpoint queries every pricing method at once and returns
// ModelInsight payloads.
func MethodsEndpoint() Endpoint {
	return Endpoint{
		Name:   VariantMethods,
		Path:   "/methods/all",
		Fixed:  []Param{{Key: "overall", Value: "0.2"}},
		Schema: InsightSchema{},
	}
}

// MonthEndpoint optimizes a single simulated month and returns MonthInsight
// payloads.
func MonthEndpoint() Endpoint {
	return Endpoint{
		Name:   VariantMonth,
		Path:   "/month",
		Fixed:  []Param{{Key: "overall", Value: "5"}},
		Schema: MonthSchema{},
	}
}

// SimulatedEndpoint performs no request.
func SimulatedEndpoint() Endpoint {
	return Endpoint{Name: VariantSimulated}
}

// LookupEndpoint returns the descriptor registered under name.
func LookupEndpoint(name string) (Endpoint, bool) {
	switch name {
	case VariantMethods:
		return MethodsEndpoint(), true
	case VariantMonth:
		return MonthEndpoint(), true
	case VariantSimulated:
		return SimulatedEndpoint(), true
	default:
		return Endpoint{}, false
	}
}
