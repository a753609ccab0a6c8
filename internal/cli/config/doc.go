// Package config holds the regmesh-cli configuration stored in
// ~/.regmesh/cli.yaml: the default server, output format, request timeout
// and named server profiles.
package config
