package fetchclient

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"weathertelemetry/internal/models"
)

const (
	mockMinLatency = 80 * time.Millisecond
	mockMaxLatency = 350 * time.Millisecond
)

type weightedCondition struct {
	label  string
	weight int
}

// baseConditions apply everywhere; snowConditions are only mixed in at
// |latitude| > 45 degrees (spec.md §4.4: "snow suppressed when |latitude|
// <= 45 degrees").
var baseConditions = []weightedCondition{
	{"clear sky", 35},
	{"partly cloudy", 25},
	{"overcast", 15},
	{"slight rain", 15},
	{"moderate rain", 7},
	{"thunderstorm", 3},
}

var snowConditions = []weightedCondition{
	{"slight snow fall", 10},
	{"heavy snow fall", 4},
}

// MockFetcher synthesizes observations with the same shape as Client's,
// for USE_MOCK=true development and test runs (spec.md §4.4 "Mock mode").
type MockFetcher struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewMockFetcher builds a MockFetcher. Each instance owns its own *rand.Rand;
// the worker pool shares one MockFetcher across all workers, so Fetch holds
// mu around every use of it.
func NewMockFetcher() *MockFetcher {
	return &MockFetcher{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Fetch returns a synthetic observation for loc after a simulated 80-350ms
// network delay. Temperature is derived from latitude with a hemisphere-
// aware seasonal adjustment; condition is drawn from a weighted pool.
func (m *MockFetcher) Fetch(ctx context.Context, loc models.Location) (models.Observation, error) {
	m.mu.Lock()
	delay := mockMinLatency + time.Duration(m.rng.Int63n(int64(mockMaxLatency-mockMinLatency)))
	m.mu.Unlock()
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return models.Observation{}, ctx.Err()
	case <-timer.C:
	}

	now := time.Now().UTC()
	m.mu.Lock()
	temperature := m.syntheticTemperature(loc.Lat, now)
	condition := m.syntheticCondition(loc.Lat)
	m.mu.Unlock()
	return models.Observation{
		City:        loc.Name,
		Lat:         loc.Lat,
		Lon:         loc.Lon,
		Temperature: temperature,
		Condition:   condition,
		RecordedAt:  now,
	}, nil
}

// syntheticTemperature follows a simple latitude-banded model: warmest at
// the equator, falling off toward the poles, with a hemisphere-flipped
// seasonal swing so the northern and southern hemispheres are out of phase.
func (m *MockFetcher) syntheticTemperature(lat float64, now time.Time) float64 {
	base := 30 - (math.Abs(lat)/90)*45 // 30C at the equator, -15C at the poles

	dayOfYear := float64(now.YearDay())
	seasonalPhase := (dayOfYear / 365.25) * 2 * math.Pi
	amplitude := 10.0
	if lat < 0 {
		seasonalPhase += math.Pi // southern hemisphere is six months out of phase
	}
	seasonal := amplitude * math.Sin(seasonalPhase-math.Pi/2)

	jitter := (m.rng.Float64() - 0.5) * 4
	return base + seasonal + jitter
}

func (m *MockFetcher) syntheticCondition(lat float64) string {
	pool := baseConditions
	if math.Abs(lat) > 45 {
		pool = append(append([]weightedCondition{}, baseConditions...), snowConditions...)
	}

	total := 0
	for _, c := range pool {
		total += c.weight
	}

	pick := m.rng.Intn(total)
	for _, c := range pool {
		if pick < c.weight {
			return c.label
		}
		pick -= c.weight
	}
	return pool[len(pool)-1].label
}
