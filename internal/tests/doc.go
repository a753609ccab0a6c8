// Package tests holds integration tests that run several RegMesh nodes in
// one process, connected over real cluster RPC listeners.
package tests
