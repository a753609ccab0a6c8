// Package naming keeps the local service registry consistent with its peers
// through checksum based anti-entropy.
//
// Peers periodically push one ChecksumVector per namespace (Reporter). The
// Reconciler compares every entry with the locally recomputed checksum and
// queues a RepairTask per mismatching (namespace, service, source). The
// Syncer drains the RepairQueue, fetches the authoritative copy from the
// reporting peer and stores it in the Registry.
package naming
