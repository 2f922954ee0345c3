// Package validator implements structural correctness checks on raw graph
// input: required input/output nodes, edge referential integrity, and
// cycle detection via depth-first traversal.
//
// Validation never mutates the graph and never raises for expected
// structural violations; findings are advisory strings on the result.
package validator
