package benchmark

import (
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strconv"
	"testing"

	"github.com/yndnr/regmesh-go/internal/core/domain"
)

// MemberCounts defines the cluster sizes for benchmarking.
var MemberCounts = []int{3, 10, 50, 200, 1000}

// ServiceCounts defines the registry sizes for benchmarking.
var ServiceCounts = []int{100, 1000, 10000}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// loadDetail returns one metric per member with a skewed SDK count.
func loadDetail(members int) []domain.LoadMetric {
	detail := make([]domain.LoadMetric, members)
	for i := range detail {
		detail[i] = domain.LoadMetric{
			Address: fmt.Sprintf("10.0.%d.%d:9848", i/250, i%250),
			Metric: map[string]string{
				domain.MetricSDKConCount: strconv.Itoa((i * 37) % 500),
				domain.MetricConCount:    strconv.Itoa((i*37)%500 + 5),
			},
		}
	}
	return detail
}

// newService returns a service with instances instances.
func newService(name string, instances int) *domain.Service {
	svc := &domain.Service{
		NamespaceID: domain.DefaultNamespace,
		Name:        name,
		Metadata:    map[string]string{"owner": "bench"},
	}
	for i := 0; i < instances; i++ {
		svc.Instances = append(svc.Instances, domain.Instance{
			IP:          fmt.Sprintf("10.1.%d.%d", i/250, i%250),
			Port:        8080,
			Weight:      1,
			Healthy:     i%7 != 0,
			Enabled:     true,
			Ephemeral:   true,
			ClusterName: domain.DefaultClusterName,
			Metadata:    map[string]string{"zone": "z" + strconv.Itoa(i%3)},
		})
	}
	return svc
}

// reportMemory reports memory usage.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
	b.ReportMetric(float64(m.NumGC), prefix+"_GC")
}

// runWithCounts runs a benchmark function for each count.
func runWithCounts(b *testing.B, label string, counts []int, benchFn func(b *testing.B, count int)) {
	for _, count := range counts {
		b.Run(fmt.Sprintf("%s_%d", label, count), func(b *testing.B) {
			benchFn(b, count)
		})
	}
}
