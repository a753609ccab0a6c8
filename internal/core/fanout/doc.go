// Package fanout dispatches one call per cluster member and collects the
// answers within a bounded wall-clock budget.
//
// A single process-wide Pool bounds how many calls execute at once. Gather
// returns whatever completed, in arrival order; members that did not answer
// in time are reported as timed out and never fail the round.
package fanout
