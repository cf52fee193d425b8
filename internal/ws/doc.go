// Package ws streams job results to WebSocket clients.
//
// New(store, interval) creates a Hub. Hub.Run(ctx) broadcasts the current
// snapshot on every tick and whenever Notify is called, and closes every
// connection once ctx is cancelled. Hub.ServeHTTP upgrades the request,
// sends the snapshot straight away and then relays broadcasts.
//
// Each message is
//
//	{"event": "snapshot", "data": <GET /api/v1/snapshot document>}
//
// The upgrader accepts all origins; restrict them at the reverse proxy.
// The server mounts the hub at /ws/stream.
package ws
