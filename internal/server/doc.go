// Package server implements the HTTP API for taskmaster
//
// This package provides REST endpoints for registering, running, starting
// and stopping workflows, the ingress for webhook triggers, and a
// WebSocket stream of runner events
package server
