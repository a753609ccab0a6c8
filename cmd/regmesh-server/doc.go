// Package main provides the entry point for regmesh-server.
//
// A node serves:
//
//   - the admin HTTP API for connection load rebalancing and service status
//   - the cluster RPC endpoint used by peers for fan-out and repair
//   - optionally a gossip listener when cluster.membership is "gossip"
//
// Usage:
//
//	regmesh-server [flags]
//	regmesh-server --config /etc/regmesh/server.yaml
//
// Every config key can be overridden from the environment, for example
// REGMESH_LOADER__MAX_CLIENTS=500.
package main
