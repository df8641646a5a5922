// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Custom WebSocket close codes used when a connection attempt is
// rejected after the upgrade. These give clients a more specific reason
// than the standard codes; version mismatch in particular triggers a
// hard page reload on the client.
const (
	StatusVersionMismatch websocket.StatusCode = 4000 // Client build does not match the server's protocol version.
	StatusRoomNotFound    websocket.StatusCode = 4001 // Target room ID does not exist (e.g. pruned between page load and connect).
	StatusRoomStarted     websocket.StatusCode = 4002 // Room's round already started or is counting down.
	StatusRoomFull        websocket.StatusCode = 4003 // Room is at member capacity.
)
