package integration

import (
	"sort"
	"time"
)

// Sample is one measured call.
type Sample struct {
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

// PerformanceStats aggregates the retained samples of one tool.
type PerformanceStats struct {
	Tool     string        `json:"tool"`
	Calls    int           `json:"calls"`
	Min      time.Duration `json:"min"`
	Avg      time.Duration `json:"avg"`
	Max      time.Duration `json:"max"`
	LastCall time.Time     `json:"last_call"`
}

func (f *Facade) recordSample(tool string, d time.Duration) {
	now := f.clock.Now()

	f.mu.Lock()
	defer f.mu.Unlock()

	samples := append(f.samples[tool], Sample{Duration: d, Timestamp: now})
	if over := len(samples) - f.cfg.MaxSamples; over > 0 {
		samples = append([]Sample(nil), samples[over:]...)
	}
	f.samples[tool] = samples
}

// Samples returns a copy of the retained samples of tool, oldest first.
func (f *Facade) Samples(tool string) []Sample {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]Sample(nil), f.samples[tool]...)
}

// Performance aggregates the retained samples of tool.
func (f *Facade) Performance(tool string) (PerformanceStats, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	samples := f.samples[tool]
	if len(samples) == 0 {
		return PerformanceStats{}, false
	}
	return aggregate(tool, samples), true
}

// PerformanceSummary aggregates every sampled tool, sorted by tool name.
func (f *Facade) PerformanceSummary() []PerformanceStats {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]PerformanceStats, 0, len(f.samples))
	for tool, samples := range f.samples {
		if len(samples) > 0 {
			out = append(out, aggregate(tool, samples))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tool < out[j].Tool })
	return out
}

func aggregate(tool string, samples []Sample) PerformanceStats {
	stats := PerformanceStats{
		Tool:  tool,
		Calls: len(samples),
		Min:   samples[0].Duration,
		Max:   samples[0].Duration,
	}
	var total time.Duration
	for _, s := range samples {
		total += s.Duration
		if s.Duration < stats.Min {
			stats.Min = s.Duration
		}
		if s.Duration > stats.Max {
			stats.Max = s.Duration
		}
		if s.Timestamp.After(stats.LastCall) {
			stats.LastCall = s.Timestamp
		}
	}
	stats.Avg = total / time.Duration(len(samples))
	return stats
}
