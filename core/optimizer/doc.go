// Package optimizer describes the remote pricing optimization service: the
// objectives it understands, the endpoint variants it exposes, the shape of
// its responses and the errors raised at the network boundary.
package optimizer
