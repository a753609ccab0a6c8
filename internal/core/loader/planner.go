package loader

import (
	"fmt"
	"math"
	"sort"

	"github.com/yndnr/regmesh-go/internal/core/domain"
)

// DefaultToleranceFactor is the planner's default tolerance around avg.
const DefaultToleranceFactor = 0.1

// Plan is the outcome of one planning call.
type Plan struct {
	Factor         float64 `json:"factor"`
	Avg            int     `json:"avg"`
	OverLimitCount int     `json:"overLimitCount"`
	LowLimitCount  int     `json:"lowLimitCount"`

	// OverLimit is sorted heaviest first.
	OverLimit []domain.LoadMetric `json:"overLimit"`

	// LowLimit is sorted lightest first.
	LowLimit []domain.LoadMetric `json:"lowLimit"`

	// Instructions pairs OverLimit[i] with LowLimit[i].
	Instructions []domain.ReloadInstruction `json:"instructions"`
}

// ValidateFactor checks a tolerance factor is within [0, 1).
func ValidateFactor(factor float64) error {
	if factor < 0 || factor >= 1 || math.IsNaN(factor) {
		return domain.ErrInvalidFactor.WithDetails(fmt.Sprintf("%v", factor))
	}
	return nil
}

type loadEntry struct {
	metric domain.LoadMetric
	count  int
}

// NewPlan classifies members of stats and pairs them greedily.
//
// A member is over-limit when its count > int(avg*(1+factor)) and under-limit
// when its count < int(avg*(1-factor)). Pairing is index aligned: the i-th
// heaviest over-limit member sheds toward the i-th lightest under-limit one,
// for i < min(|over|, |low|). Each instruction targets the over-limit member,
// asks it to keep OverLimitCount connections and redirects the rest to the
// paired member.
func NewPlan(stats *domain.LoadStatistics, factor float64) (*Plan, error) {
	if stats == nil || stats.MetricsCount == 0 {
		return nil, domain.ErrInsufficientData
	}
	if err := ValidateFactor(factor); err != nil {
		return nil, err
	}

	p := &Plan{
		Factor:         factor,
		Avg:            stats.Avg,
		OverLimitCount: int(float64(stats.Avg) * (1 + factor)),
		LowLimitCount:  int(float64(stats.Avg) * (1 - factor)),
	}

	var over, low []loadEntry
	for _, m := range stats.Detail {
		n, ok := m.SDKConCount()
		if !ok {
			continue
		}
		if n > p.OverLimitCount {
			over = append(over, loadEntry{metric: m, count: n})
		}
		if n < p.LowLimitCount {
			low = append(low, loadEntry{metric: m, count: n})
		}
	}

	sort.SliceStable(over, func(i, j int) bool {
		if over[i].count != over[j].count {
			return over[i].count > over[j].count
		}
		return over[i].metric.Address < over[j].metric.Address
	})
	sort.SliceStable(low, func(i, j int) bool {
		if low[i].count != low[j].count {
			return low[i].count < low[j].count
		}
		return low[i].metric.Address < low[j].metric.Address
	})

	for _, e := range over {
		p.OverLimit = append(p.OverLimit, e.metric)
	}
	for _, e := range low {
		p.LowLimit = append(p.LowLimit, e.metric)
	}

	for i := 0; i < len(over) && i < len(low); i++ {
		p.Instructions = append(p.Instructions, domain.ReloadInstruction{
			Target:          domain.Member{Address: over[i].metric.Address, LongConnection: true},
			ReloadCount:     p.OverLimitCount,
			RedirectAddress: low[i].metric.Address,
		})
	}
	return p, nil
}
