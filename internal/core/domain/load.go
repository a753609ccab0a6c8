package domain

import (
	"strconv"
	"strings"
)

// Load metric keys reported by a node.
const (
	// MetricSDKConCount is the number of SDK (client) long connections.
	MetricSDKConCount = "sdkConCount"

	// MetricConCount is the number of all long connections, cluster peers included.
	MetricConCount = "conCount"

	// MetricLimitRule is the max client count currently enforced (-1 = unlimited).
	MetricLimitRule = "limitRule"

	// MetricLoad is the one minute system load average, when available.
	MetricLoad = "load"

	// MetricCPU is the number of processing units of the node.
	MetricCPU = "cpu"
)

// LoadMetric is one node's load snapshot for a collection round.
type LoadMetric struct {
	Address string            `json:"address"`
	Metric  map[string]string `json:"metric"`
}

// SDKConCount returns the reported SDK connection count.
// The second result is false when the value is missing, blank or unparsable.
func (m LoadMetric) SDKConCount() (int, bool) {
	raw, ok := m.Metric[MetricSDKConCount]
	if !ok {
		return 0, false
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

// LoadStatistics is the cluster-wide reduction of one collection round.
//
// Min is -1 when no response carried a usable sdkConCount.
type LoadStatistics struct {
	Max          int          `json:"max"`
	Min          int          `json:"min"`
	Avg          int          `json:"avg"`
	Total        int          `json:"total"`
	MemberCount  int          `json:"memberCount"`
	MetricsCount int          `json:"metricsCount"`
	Threshold    float64      `json:"threshold"`
	Detail       []LoadMetric `json:"detail"`
}

// ReloadInstruction asks Target to keep at most ReloadCount client
// connections and to steer the displaced ones toward RedirectAddress.
type ReloadInstruction struct {
	Target          Member `json:"target"`
	ReloadCount     int    `json:"reloadCount"`
	RedirectAddress string `json:"redirectAddress,omitempty"`
}
