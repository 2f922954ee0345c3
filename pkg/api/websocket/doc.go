// Package websocket provides real-time event streaming via WebSocket.
//
// Clients connect to /api/v1/executions/:id/ws to receive the execution's
// events as they are published.
package websocket
