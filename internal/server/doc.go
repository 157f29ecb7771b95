// Package server implements the HTTP API server for the flow tracker
//
// This package provides REST endpoints for starting, inspecting, and
// driving flows, plus a WebSocket stream of flow updates
package server
