// Package api implements the read-only HTTP API of rangeshift serve.
//
// New(store, history, alerts) returns an http.Handler that serves:
//
//	GET /api/v1/health             job counts and an overall state
//	GET /api/v1/jobs               all live job results ([]JobResponse)
//	GET /api/v1/jobs/{id}          one job; 404 if unknown or stale
//	GET /api/v1/jobs/{id}/history  recorded runs, newest first; ?limit=N
//	GET /api/v1/alerts             firing and recently resolved alerts
//	GET /api/v1/snapshot           all live jobs plus generated_at
//
// Every endpoint answers with Content-Type: application/json and returns
// 405 for methods other than GET. The history endpoint returns 404 when the
// server runs without a history database.
//
// JSON types live in types.go. BuildSnapshot is shared with the WebSocket
// hub so both surfaces publish the same document.
package api
