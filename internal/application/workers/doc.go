// Package workers hosts the engine's background workers: the janitor
// that enforces event retention and the health monitor that tracks
// engine load.
package workers
