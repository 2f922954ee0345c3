// Package compiler turns a validated raw graph into a compiled execution
// plan: the node list annotated with dependencies and execution order, the
// leveled execution plan produced by Kahn's algorithm, and the parallel
// groups (levels with more than one node).
//
// Compilation is pure: no I/O, and errors are returned on the compiled
// graph rather than raised, so callers can report multiple structural
// issues in one response.
package compiler
