// Package domain defines the core types shared across the FlowForge engine:
// raw graphs, compiled graphs, execution lifecycle state, events, and
// resource accounting value objects.
//
// Types in this package carry no behavior beyond simple accessors; all
// engine logic lives under internal/engine.
package domain
