// Package orchestrator coordinates the engine pipeline: graphs submitted
// by the API are validated, compiled, optionally optimized, and handed to
// the executor. It is the single entry point the transports talk to.
package orchestrator
