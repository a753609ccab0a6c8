// Package loader balances long-lived client connections across the cluster.
//
// One rebalancing pass is collect, plan, execute:
//
//   - Collector measures self in-process and every long-connection peer
//     through a bounded fan-out round, then reduces the answers into
//     domain.LoadStatistics.
//   - NewPlan classifies members against avg*(1±factor) and pairs the
//     heaviest over-limit member with the lightest under-limit one.
//   - Executor applies reload and max-client instructions locally or over
//     the cluster RPC gateway.
//
// Service ties the three together for the admin surfaces. Nothing in this
// package retries; repeated passes converge.
package loader
