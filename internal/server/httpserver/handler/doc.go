// Package handler provides HTTP request handlers for the RegMesh admin API.
//
// Routes keep the original console paths:
//
//   - /v1/console/loader/*: connection load inspection and rebalancing
//   - /v1/ns/service/*: checksum report ingress and single-service checksum
//   - /v1/ns/instance: instance registration for the local registry
//   - /health, /ready: liveness and readiness
//
// Every JSON response uses the Response envelope.
package handler
