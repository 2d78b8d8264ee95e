// Package session holds the latest optimization outcome for a UI.
//
// A Session owns two pieces of state, the last accepted result and whether
// one is available, and changes them only through Clear and Optimize.
// Readers use the View accessors or subscribe to Snapshot events.
// Overlapping Optimize calls are neither queued nor cancelled: whichever
// request completes last determines the stored result.
//
// Simulation is the network-free variant: Start raises a loading flag and
// lowers it once a fixed delay has elapsed.
package session
