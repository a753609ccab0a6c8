// Package httpserver provides the HTTP server for RegMesh.
//
// It serves the operator console and the naming endpoints using stdlib
// net/http:
//
//   - Loader console: /v1/console/loader/*
//   - Naming: /v1/ns/service/*, /v1/ns/instance
//   - Health endpoints: /health, /ready, /metrics
//
// Every route gets its own middleware chain: Recover, RequestID, Observe,
// RateLimit and Audit. Routes that change cluster state additionally pass
// through NetworkACL.
package httpserver
