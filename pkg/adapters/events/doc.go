// Package events provides event bus and event store implementations.
//
// Implementations:
//   - memory: in-process bus and append-only store used by the engine
//   - redis: Redis Streams relay and Redis-backed store for external
//     consumers and durable event history
package events
