// Package ws streams navigation events over WebSocket.
//
// Message Types (Client → Server):
//   - ping: keep-alive ping
//   - navigate: request navigation to guid
//   - back: go back one history entry
//
// Message Types (Server → Client):
//   - system: connection greeting
//   - navigated: a navigation committed
//   - outcome: result of a navigate request
//   - pong: reply to ping
//   - error: request failed
//
// Events are delivered through a bounded outbox; a client that stops reading
// loses events rather than stalling navigation.
//
// Example Usage:
//
//	handler := ws.NewHandler(shell, metrics, logger)
//	router.GET("/ws/navigation", handler.HandleConnection)
package ws
