package loader

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/regmesh-go/internal/core/domain"
)

func metric(addr string, sdk string) domain.LoadMetric {
	m := map[string]string{}
	if sdk != "-" {
		m[domain.MetricSDKConCount] = sdk
	}
	return domain.LoadMetric{Address: addr, Metric: m}
}

func TestSummarize(t *testing.T) {
	stats, err := Summarize([]domain.LoadMetric{
		metric("a:1", "10"),
		metric("b:1", "50"),
		metric("c:1", "90"),
	}, 3, DefaultThresholdFactor)
	require.NoError(t, err)

	assert.Equal(t, 90, stats.Max)
	assert.Equal(t, 10, stats.Min)
	assert.Equal(t, 150, stats.Total)
	assert.Equal(t, 50, stats.Avg)
	assert.InDelta(t, 55.0, stats.Threshold, 1e-9)
	assert.Equal(t, 3, stats.MetricsCount)
	assert.Equal(t, 3, stats.MemberCount)
}

func TestSummarize_IntegerDivision(t *testing.T) {
	stats, err := Summarize([]domain.LoadMetric{
		metric("a:1", "1"),
		metric("b:1", "2"),
	}, 2, DefaultThresholdFactor)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Avg)
}

func TestSummarize_BlankCountsStillCountAsResponses(t *testing.T) {
	stats, err := Summarize([]domain.LoadMetric{
		metric("a:1", "30"),
		metric("b:1", ""),
		metric("c:1", "-"),
		metric("d:1", "x"),
	}, 5, DefaultThresholdFactor)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.MetricsCount)
	assert.Equal(t, 30, stats.Total)
	assert.Equal(t, 30, stats.Max)
	assert.Equal(t, 30, stats.Min)
	assert.Equal(t, 7, stats.Avg)
}

func TestSummarize_MinSentinel(t *testing.T) {
	stats, err := Summarize([]domain.LoadMetric{metric("a:1", "")}, 1, DefaultThresholdFactor)
	require.NoError(t, err)
	assert.Equal(t, -1, stats.Min)
	assert.Equal(t, 0, stats.Max)

	stats, err = Summarize([]domain.LoadMetric{metric("a:1", "0"), metric("b:1", "4")}, 2, DefaultThresholdFactor)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Min, "zero is a real load, not the unset sentinel")
}

func TestSummarize_Empty(t *testing.T) {
	_, err := Summarize(nil, 3, DefaultThresholdFactor)
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestSummarize_MinAvgMaxProperty(t *testing.T) {
	samples := [][]int{
		{0},
		{7, 7, 7},
		{1, 2},
		{0, 0, 100},
		{3, 99, 14, 15, 92, 65},
		{1000, 1},
	}
	for _, counts := range samples {
		detail := make([]domain.LoadMetric, len(counts))
		total := 0
		for i, c := range counts {
			detail[i] = domain.LoadMetric{Address: string(rune('a' + i)), Metric: map[string]string{domain.MetricSDKConCount: strconv.Itoa(c)}}
			total += c
		}
		stats, err := Summarize(detail, len(counts), DefaultThresholdFactor)
		require.NoError(t, err)
		assert.LessOrEqual(t, stats.Min, stats.Avg, counts)
		assert.LessOrEqual(t, stats.Avg, stats.Max, counts)
		assert.Equal(t, total/len(counts), stats.Avg, counts)
	}
}

func TestCollector_SelfAndLongConnectionPeers(t *testing.T) {
	dir := directory(
		peer("10.0.0.2:9848"),
		peer("10.0.0.3:9848"),
		domain.Member{Address: "10.0.0.4:9848"},
	)
	remote := newFakeRemote().withSDK("10.0.0.2:9848", 50).withSDK("10.0.0.3:9848", 90)
	c := NewCollector(CollectorConfig{Logger: quietLogger()}, dir, newFakeLocal(10), remote, testAggregator())

	stats, err := c.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, stats.MemberCount)
	assert.Equal(t, 3, stats.MetricsCount)
	assert.Equal(t, 50, stats.Avg)
	assert.InDelta(t, 55.0, stats.Threshold, 1e-9)
	assert.Equal(t, selfAddr, stats.Detail[0].Address)
	assert.NotContains(t, remote.infoCalls, "10.0.0.4:9848", "peers without long connections are never asked")
}

func TestCollector_PeerTimeout(t *testing.T) {
	dir := directory(peer("10.0.0.2:9848"), peer("10.0.0.3:9848"), peer("10.0.0.4:9848"))
	remote := newFakeRemote().withSDK("10.0.0.2:9848", 20).withSDK("10.0.0.3:9848", 40)
	remote.peers["10.0.0.4:9848"] = peerBehavior{
		metrics: map[string]string{domain.MetricSDKConCount: "1000"},
		delay:   5 * time.Second,
	}
	c := NewCollector(CollectorConfig{Logger: quietLogger()}, dir, newFakeLocal(30), remote, testAggregator())

	start := time.Now()
	stats, err := c.Collect(context.Background())
	require.NoError(t, err)

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 3, stats.MetricsCount)
	assert.Equal(t, 90, stats.Total)
	assert.Equal(t, 30, stats.Avg)
	assert.Equal(t, 40, stats.Max)
}

func TestCollector_AllPeersUnreachable(t *testing.T) {
	dir := directory(peer("10.0.0.2:9848"), peer("10.0.0.3:9848"))
	c := NewCollector(CollectorConfig{Logger: quietLogger()}, dir, newFakeLocal(12), newFakeRemote(), testAggregator())

	stats, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.MetricsCount)
	assert.Equal(t, 12, stats.Avg)
	assert.Equal(t, selfAddr, stats.Detail[0].Address)
}

func TestCollector_SelfMeasurementFailure(t *testing.T) {
	local := newFakeLocal(0)
	local.metrics = map[string]string{domain.MetricConCount: "3"}
	c := NewCollector(CollectorConfig{Logger: quietLogger()}, directory(), local, newFakeRemote(), testAggregator())

	_, err := c.Collect(context.Background())
	assert.ErrorIs(t, err, domain.ErrSelfMeasurement)
}
