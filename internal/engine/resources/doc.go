// Package resources implements the resource manager: prediction of
// memory/CPU/duration/token usage from a node list, per-run cost analysis,
// and scoped allocation of per-execution budgets against process-wide
// limits with guaranteed release on every exit path.
package resources
