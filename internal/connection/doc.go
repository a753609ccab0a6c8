// Package connection tracks the long-lived client connections held by the
// local node and enforces its max client count.
//
// The Manager is the local side of load rebalancing: it reports connection
// metrics, caps new SDK connections, and sheds connections toward a
// redirect address when asked to reload.
package connection
