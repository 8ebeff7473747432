// Package server implements the HTTP API of the flow service
//
// It exposes the flow catalog, runs flows on request, resolves document
// share links and streams execution events over WebSocket connections
package server
