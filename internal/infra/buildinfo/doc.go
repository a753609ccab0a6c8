// Package buildinfo provides build information for RegMesh.
//
// Values are injected at build time via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/regmesh-go/internal/infra/buildinfo.Version=v1.0.0"
//
// Commit and GoVersion fall back to the module build information embedded
// by the Go toolchain when not injected.
package buildinfo
