// Package ports defines the interfaces between the execution engine and
// its pluggable collaborators: node executors, the event bus, the event
// store, and metrics collection.
//
// Implementations:
//   - pkg/adapters/nodes: node executor registry (llm, tool, retrieval, ...)
//   - pkg/adapters/events/memory: in-process event bus and store
//   - pkg/adapters/events/redis: Redis Streams relay and event store
//   - pkg/adapters/metrics: prometheus and noop collectors
package ports
