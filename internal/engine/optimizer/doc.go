// Package optimizer implements the seven graph optimization passes: dead
// code elimination, node merging, parallel execution analysis, resource
// optimization, cost-based optimization, caching strategy assignment, and
// edge pruning.
//
// Passes are independent: each computes its result from the original
// compiled graph, not from another pass's output. Optimize runs all seven
// and records a history entry for audit.
package optimizer
