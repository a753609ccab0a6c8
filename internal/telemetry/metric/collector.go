package metric

import "github.com/prometheus/client_golang/prometheus"

// Sources are read on every scrape. Nil funcs are skipped.
type Sources struct {
	Connections      func() int
	SDKConnections   func() int
	MaxClients       func() int
	RepairQueueDepth func() int
	Members          func() int
	Services         func() int
}

// Collector samples live gauges from Sources.
type Collector struct {
	gauges []sampledGauge
}

type sampledGauge struct {
	desc *prometheus.Desc
	read func() int
}

// NewCollector creates a collector over src.
func NewCollector(src Sources) *Collector {
	c := &Collector{}
	add := func(name, help string, read func() int) {
		if read == nil {
			return
		}
		c.gauges = append(c.gauges, sampledGauge{
			desc: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, nil, nil),
			read: read,
		})
	}
	add("connections", "Long connections held by this node.", src.Connections)
	add("sdk_connections", "SDK client connections held by this node.", src.SDKConnections)
	add("max_clients", "SDK connection cap, -1 when unlimited.", src.MaxClients)
	add("repair_queue_depth", "Repair tasks waiting for a sync worker.", src.RepairQueueDepth)
	add("cluster_members", "Members in the local directory, self included.", src.Members)
	add("services", "Services in the local registry.", src.Services)
	return c
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, g := range c.gauges {
		ch <- g.desc
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, g := range c.gauges {
		ch <- prometheus.MustNewConstMetric(g.desc, prometheus.GaugeValue, float64(g.read()))
	}
}

// RegisterSources registers a Collector over src.
func (r *Registry) RegisterSources(src Sources) error {
	return r.reg.Register(NewCollector(src))
}
