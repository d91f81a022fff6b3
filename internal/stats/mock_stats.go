package stats

import "github.com/stretchr/testify/mock"

var _ StatsProvider = (*MockStatsUpdater)(nil)

// MockStatsUpdater records counter updates. Tests that only care about a few
// counters can allow the rest with AllowAll.
type MockStatsUpdater struct {
	mock.Mock
}

// AllowAll accepts every call without asserting on it.
func (m *MockStatsUpdater) AllowAll() *MockStatsUpdater {
	m.On("Incr", mock.Anything).Maybe()
	m.On("Decr", mock.Anything).Maybe()
	m.On("RegisterMetric", mock.Anything).Maybe()
	m.On("RegisterGauge", mock.Anything, mock.Anything).Maybe()
	m.On("Run").Maybe()
	return m
}

func (m *MockStatsUpdater) Incr(name string) {
	m.Called(name)
}

func (m *MockStatsUpdater) Decr(name string) {
	m.Called(name)
}

func (m *MockStatsUpdater) RegisterMetric(name string) {
	m.Called(name)
}

func (m *MockStatsUpdater) RegisterGauge(name string, fn func() int64) {
	m.Called(name, fn)
}

func (m *MockStatsUpdater) Run() {
	m.Called()
}
