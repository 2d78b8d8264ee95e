package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/kilianp07/coopt/auth"
	"github.com/kilianp07/coopt/core/optimizer"
	"github.com/kilianp07/coopt/core/session"
)

// OptimizerConfig locates the remote optimizer and selects the endpoint
// variant: "methods", "month" or "simulated".
type OptimizerConfig struct {
	BaseURL        string `json:"base_url"`
	Variant        string `json:"variant"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	// Auth enables OAuth2 client credentials on optimizer requests.
	Auth auth.Conf `json:"auth"`
}

func (c *OptimizerConfig) SetDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = optimizer.DefaultBaseURL
	}
	if c.Variant == "" {
		c.Variant = optimizer.VariantMethods
	}
}

func (c OptimizerConfig) Validate() error {
	ep, ok := optimizer.LookupEndpoint(c.Variant)
	if !ok {
		return fmt.Errorf("unknown variant %q", c.Variant)
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds cannot be negative")
	}
	if ep.Simulated() {
		return nil
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base_url %q", c.BaseURL)
	}
	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	return nil
}

// Endpoint returns the descriptor of the configured variant.
func (c OptimizerConfig) Endpoint() optimizer.Endpoint {
	ep, _ := optimizer.LookupEndpoint(c.Variant)
	return ep
}

// Timeout is the per-request timeout; zero means none.
func (c OptimizerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SessionConfig tunes the session behaviour.
type SessionConfig struct {
	// FailurePolicy is "keep" (default) or "clear".
	FailurePolicy    string `json:"failure_policy"`
	SimulatedDelayMS int    `json:"simulated_delay_ms"`
}

func (c *SessionConfig) SetDefaults() {
	if c.FailurePolicy == "" {
		c.FailurePolicy = "keep"
	}
	if c.SimulatedDelayMS == 0 {
		c.SimulatedDelayMS = int(session.DefaultSimulatedDelay / time.Millisecond)
	}
}

func (c SessionConfig) Validate() error {
	if _, err := session.ParseFailurePolicy(c.FailurePolicy); err != nil {
		return err
	}
	if c.SimulatedDelayMS < 0 {
		return fmt.Errorf("simulated_delay_ms cannot be negative")
	}
	return nil
}

// Policy returns the parsed failure policy.
func (c SessionConfig) Policy() session.FailurePolicy {
	p, _ := session.ParseFailurePolicy(c.FailurePolicy)
	return p
}

// SimulatedDelay returns the simulated loading time.
func (c SessionConfig) SimulatedDelay() time.Duration {
	return time.Duration(c.SimulatedDelayMS) * time.Millisecond
}

// APIConfig configures the session HTTP API.
type APIConfig struct {
	Address string `json:"address"`
	// Token, when set, is required as a bearer token on mutating routes.
	Token string `json:"token"`
}

func (c *APIConfig) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
}

func (c APIConfig) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("address is required")
	}
	return nil
}
