// Package nodes provides node executor implementations.
//
// The registry dispatches each node to the executor registered for its
// type. Implementations:
//   - passthrough: input and output nodes
//   - transform: data reshaping between nodes
//   - tool: HTTP webhook invocation
//   - retrieval: Redis-backed document lookup
//   - anthropic: Claude LLM calls (subpackage)
package nodes
