// Package command defines the regmesh-cli commands on urfave/cli/v2.
//
// Command groups:
//
//   - loader: connection load rebalancing (current, metrics, max, reload,
//     reload-cluster, smart-reload, reload-single)
//   - service and instance: the local service registry and checksum
//     anti-entropy reports
//   - system: health, readiness and Prometheus metrics of a node
//   - config: local CLI settings and server profiles
//
// Every action follows the same pattern: resolve the target node, call one
// admin API route, then render the result with the selected formatter.
package command
