package optimizer

import "context"

// Client fetches optimization results for an objective.
type Client interface {
	Fetch(ctx context.Context, o Objective) (Result, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, o Objective) (Result, error)

func (f ClientFunc) Fetch(ctx context.Context, o Objective) (Result, error) { return f(ctx, o) }
