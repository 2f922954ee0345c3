// Package http provides the HTTP REST API implementation.
//
// The HTTP server exposes endpoints for:
//   - Graph validation, compilation, and optimization
//   - Execution submission and lifecycle control (pause/resume/cancel)
//   - Event log queries
//   - Health checks
//   - Prometheus metrics
package http
