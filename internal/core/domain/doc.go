// Package domain defines the core domain models for RegMesh.
//
// Domain models are plain value objects without IO dependencies. This
// package contains:
//
//   - Member: a peer server in the cluster
//   - LoadMetric / LoadStatistics / ReloadInstruction: connection load balancing
//   - ChecksumVector / RepairTask: checksum based anti-entropy
//   - Service / Instance: the registry view compared by checksums
//   - Connection: a long-lived client connection held by a node
//   - Errors: domain error codes
package domain
