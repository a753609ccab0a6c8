/*
regmesh-cli is the admin command line client for RegMesh nodes.

It talks to the admin HTTP API of a single node. Cluster wide operations
such as reload-cluster and smart-reload are coordinated by that node.

Usage:

	regmesh-cli [global flags] <command> <subcommand> [flags]

Commands:

	loader     Inspect and rebalance client connections
	service    List services, show checksums, send checksum reports
	instance   Register and deregister service instances
	system     Health, readiness and metrics of a node
	config     Manage server profiles in ~/.regmesh/cli.yaml

Examples:

	regmesh-cli -s http://10.0.0.1:8848 loader metrics
	regmesh-cli loader smart-reload --factor 0.1
	regmesh-cli -o json service list --ns public
	regmesh-cli config set-profile --address http://10.0.0.1:8848 prod
*/
package main
