// Package clusterserver provides the cluster RPC gateway for RegMesh.
//
// Peers talk to each other over connect-go unary RPCs carrying JSON bodies:
//
//   - ServerLoaderInfo, ServerReload, SetMaxClients for load rebalancing
//   - ServiceStatus, GetService for checksum anti-entropy
//   - Ping for operator diagnostics
//
// Handler serves the procedures from local state. Client implements the
// outbound side and satisfies loader.Remote, naming.Fetcher and
// naming.Pusher. Domain errors cross the wire as connect codes plus the
// Rm-Error-Code header so callers see the original error code.
package clusterserver
