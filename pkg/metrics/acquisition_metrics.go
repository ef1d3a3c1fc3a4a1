package metrics

import (
	"sort"
	"sync"
	"time"
)

// window is how many durations are kept per category.
const window = 100

// AcquisitionMetrics tracks how long acquisitions take and how often they
// fail, per media category.
type AcquisitionMetrics struct {
	mu           sync.RWMutex
	times        map[string][]time.Duration
	successCount map[string]int64
	errorCount   map[string]int64
	bytesStored  map[string]int64
	lastUpdated  time.Time
}

var (
	defaultMetrics     *AcquisitionMetrics
	defaultMetricsOnce sync.Once
)

// Default returns the process-wide collector.
func Default() *AcquisitionMetrics {
	defaultMetricsOnce.Do(func() {
		defaultMetrics = NewAcquisitionMetrics()
	})
	return defaultMetrics
}

// NewAcquisitionMetrics creates a new metrics collector.
func NewAcquisitionMetrics() *AcquisitionMetrics {
	return &AcquisitionMetrics{
		times:        make(map[string][]time.Duration),
		successCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		bytesStored:  make(map[string]int64),
		lastUpdated:  time.Now(),
	}
}

// Record adds one finished acquisition. size is ignored for failures.
func (am *AcquisitionMetrics) Record(category string, duration time.Duration, size int64, success bool) {
	am.mu.Lock()
	defer am.mu.Unlock()

	am.times[category] = append(am.times[category], duration)
	if len(am.times[category]) > window {
		am.times[category] = am.times[category][1:]
	}

	if success {
		am.successCount[category]++
		am.bytesStored[category] += size
	} else {
		am.errorCount[category]++
	}
	am.lastUpdated = time.Now()
}

// Stats returns statistics for one category.
func (am *AcquisitionMetrics) Stats(category string) CategoryStats {
	am.mu.RLock()
	defer am.mu.RUnlock()
	return am.stats(category)
}

func (am *AcquisitionMetrics) stats(category string) CategoryStats {
	s := CategoryStats{
		Category:     category,
		SuccessCount: am.successCount[category],
		ErrorCount:   am.errorCount[category],
		BytesStored:  am.bytesStored[category],
	}
	s.TotalCount = s.SuccessCount + s.ErrorCount
	if s.TotalCount > 0 {
		s.SuccessRate = float64(s.SuccessCount) / float64(s.TotalCount) * 100.0
	}

	times := am.times[category]
	if len(times) == 0 {
		return s
	}
	sorted := make([]time.Duration, len(times))
	copy(sorted, times)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, t := range sorted {
		total += t
	}
	s.AverageTime = total / time.Duration(len(sorted))
	s.MinTime = sorted[0]
	s.MaxTime = sorted[len(sorted)-1]
	s.MedianTime = median(sorted)
	s.P95Time = percentile(sorted, 0.95)
	return s
}

// Overall returns totals across every category.
func (am *AcquisitionMetrics) Overall() OverallStats {
	am.mu.RLock()
	defer am.mu.RUnlock()

	o := OverallStats{
		Categories:  make(map[string]CategoryStats),
		LastUpdated: am.lastUpdated,
	}
	var total time.Duration
	var n int
	for category, times := range am.times {
		o.Categories[category] = am.stats(category)
		for _, t := range times {
			total += t
			n++
		}
	}
	for _, c := range o.Categories {
		o.TotalSucceeded += c.SuccessCount
		o.TotalFailed += c.ErrorCount
		o.BytesStored += c.BytesStored
	}
	if n > 0 {
		o.AverageTime = total / time.Duration(n)
	}
	if sum := o.TotalSucceeded + o.TotalFailed; sum > 0 {
		o.SuccessRate = float64(o.TotalSucceeded) / float64(sum) * 100.0
	}
	return o
}

// Reset clears all metrics.
func (am *AcquisitionMetrics) Reset() {
	am.mu.Lock()
	defer am.mu.Unlock()

	am.times = make(map[string][]time.Duration)
	am.successCount = make(map[string]int64)
	am.errorCount = make(map[string]int64)
	am.bytesStored = make(map[string]int64)
	am.lastUpdated = time.Now()
}

func median(sorted []time.Duration) time.Duration {
	if len(sorted)%2 == 0 {
		return (sorted[len(sorted)/2-1] + sorted[len(sorted)/2]) / 2
	}
	return sorted[len(sorted)/2]
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	index := int(float64(len(sorted)-1) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}

// CategoryStats contains statistics for one media category.
type CategoryStats struct {
	Category     string        `json:"category"`
	SuccessCount int64         `json:"success_count"`
	ErrorCount   int64         `json:"error_count"`
	TotalCount   int64         `json:"total_count"`
	BytesStored  int64         `json:"bytes_stored"`
	AverageTime  time.Duration `json:"average_time"`
	MinTime      time.Duration `json:"min_time"`
	MaxTime      time.Duration `json:"max_time"`
	MedianTime   time.Duration `json:"median_time"`
	P95Time      time.Duration `json:"p95_time"`
	SuccessRate  float64       `json:"success_rate"`
}

// OverallStats contains totals for the process.
type OverallStats struct {
	TotalSucceeded int64                    `json:"total_succeeded"`
	TotalFailed    int64                    `json:"total_failed"`
	BytesStored    int64                    `json:"bytes_stored"`
	SuccessRate    float64                  `json:"success_rate"`
	AverageTime    time.Duration            `json:"average_time"`
	Categories     map[string]CategoryStats `json:"categories"`
	LastUpdated    time.Time                `json:"last_updated"`
}
