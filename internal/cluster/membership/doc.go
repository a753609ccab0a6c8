// Package membership provides the member directory of the cluster.
//
// A Directory is a read-mostly snapshot provider: callers take one view per
// round and never mutate membership through it. Two implementations exist:
//
//   - Static: a fixed member list from configuration
//   - Gossip: a hashicorp/memberlist backed directory whose node metadata
//     carries each member's cluster RPC address and long-connection support
package membership
