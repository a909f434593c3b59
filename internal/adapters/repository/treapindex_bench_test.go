package repository

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
)

// BenchmarkResult holds the results of one API under a stress run.
type BenchmarkResult struct {
	Operation     string
	TotalOps      int64
	TotalTime     time.Duration
	AvgLatency    time.Duration
	P50Latency    time.Duration
	P90Latency    time.Duration
	P95Latency    time.Duration
	P99Latency    time.Duration
	Throughput    float64 // ops/sec
	MemoryUsage   uint64  // bytes
	SnapshotCount int64
	ErrorCount    int64
	SuccessRate   float64
}

// APIPerformance tracks performance per index API.
type APIPerformance struct {
	Update   *BenchmarkResult
	RankOf   *BenchmarkResult
	Riskiest *BenchmarkResult
	Count    *BenchmarkResult
}

// StressTestConfig holds configuration for comprehensive stress testing.
type StressTestConfig struct {
	TotalAreas        int
	ConcurrentWorkers int
	TestDuration      time.Duration
	SnapshotInterval  time.Duration
	TopCacheSize      int

	// API call distribution (fractions summing to 1)
	UpdateRatio   float64
	RankOfRatio   float64
	RiskiestRatio float64
	CountRatio    float64

	// Riskiest query size distribution
	RiskiestSizes       []int
	RiskiestSizeWeights []float64
}

// DefaultStressTestConfig returns a configuration sized for a metro worth
// of grid areas under heavy score churn.
func DefaultStressTestConfig() *StressTestConfig {
	return &StressTestConfig{
		TotalAreas:        500_000,
		ConcurrentWorkers: 500,
		TestDuration:      2 * time.Minute,
		SnapshotInterval:  1 * time.Second,
		TopCacheSize:      5000,

		// Score churn dominates; rank lookups and risk listings follow
		UpdateRatio:   0.40,
		RankOfRatio:   0.35,
		RiskiestRatio: 0.20,
		CountRatio:    0.05,

		// Listing sizes weighted towards small dashboard queries
		RiskiestSizes:       []int{10, 50, 100, 500, 1000, 5000},
		RiskiestSizeWeights: []float64{0.4, 0.25, 0.15, 0.1, 0.07, 0.03},
	}
}

// ComprehensiveStressTest exercises every index API simultaneously under
// the configured pressure and reports per-API latency distributions.
func ComprehensiveStressTest(b *testing.B, config *StressTestConfig) {
	if config == nil {
		config = DefaultStressTestConfig()
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.TestDuration)
	defer cancel()

	idx := NewTreapIndex(ctx,
		WithSnapshotInterval(config.SnapshotInterval),
		WithTopCacheSize(config.TopCacheSize),
	)
	defer func() {
		if err := idx.Close(); err != nil {
			b.Errorf("failed to close index: %v", err)
		}
	}()

	b.Logf("Pre-populating index with %d areas...", config.TotalAreas)
	start := time.Now()
	populateIndexRealistic(ctx, idx, config.TotalAreas)
	b.Logf("Pre-population completed in %v", time.Since(start))

	b.Log("Running stress test with all index APIs under pressure...")
	apiPerformance := runComprehensiveStressTest(ctx, idx, config)

	generateComprehensiveReport(b, apiPerformance, config)
}

// populateIndexRealistic seeds the index with a realistic distribution of
// area safety scores.
func populateIndexRealistic(ctx context.Context, idx *TreapIndex, count int) {
	const batchSize = 10000
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, runtime.NumCPU()*2)

	// Most areas sit mid-scale; dangerous and very safe areas are the tails
	scoreBands := []struct {
		min, max int
		weight   float64
	}{
		{0, 20, 0.05},
		{20, 40, 0.15},
		{40, 60, 0.30},
		{60, 80, 0.30},
		{80, 100, 0.20},
	}

	for i := 0; i < count; i += batchSize {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(startIdx int) {
			defer wg.Done()
			defer func() { <-semaphore }()

			endIdx := startIdx + batchSize
			if endIdx > count {
				endIdx = count
			}

			r := rand.New(rand.NewSource(int64(startIdx)))

			for j := startIdx; j < endIdx; j++ {
				areaID := fmt.Sprintf("area_%d", j)

				// A handful of observations per area; the last one sticks
				observations := 1 + r.Intn(4)
				for k := 0; k < observations; k++ {
					randVal := r.Float64()
					cumulative := 0.0
					band := scoreBands[len(scoreBands)-1]
					for _, candidate := range scoreBands {
						cumulative += candidate.weight
						if randVal <= cumulative {
							band = candidate
							break
						}
					}

					score := band.min + r.Intn(band.max-band.min+1)
					_, _ = idx.Update(ctx, areaID, score)
				}
			}
		}(i)
	}

	wg.Wait()
}

// runComprehensiveStressTest runs all APIs simultaneously under pressure.
func runComprehensiveStressTest(ctx context.Context, idx *TreapIndex, config *StressTestConfig) *APIPerformance {
	var wg sync.WaitGroup

	updateMetrics := &MetricsCollector{}
	rankOfMetrics := &MetricsCollector{}
	riskiestMetrics := &MetricsCollector{}
	countMetrics := &MetricsCollector{}

	testStart := time.Now()

	for i := 0; i < config.ConcurrentWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(int64(workerID) + time.Now().UnixNano()))

			for ctx.Err() == nil {
				apiChoice := r.Float64()

				switch {
				case apiChoice < config.UpdateRatio:
					areaID := fmt.Sprintf("area_%d", r.Intn(config.TotalAreas))
					score := r.Intn(101)

					start := time.Now()
					_, err := idx.Update(ctx, areaID, score)
					updateMetrics.Record(time.Since(start), err == nil)

				case apiChoice < config.UpdateRatio+config.RankOfRatio:
					areaID := fmt.Sprintf("area_%d", r.Intn(config.TotalAreas))

					start := time.Now()
					_, err := idx.RankOf(ctx, areaID)
					rankOfMetrics.Record(time.Since(start), err == nil)

				case apiChoice < config.UpdateRatio+config.RankOfRatio+config.RiskiestRatio:
					randVal := r.Float64()
					cumulative := 0.0
					var selectedSize int
					for i, weight := range config.RiskiestSizeWeights {
						cumulative += weight
						if randVal <= cumulative {
							selectedSize = config.RiskiestSizes[i]
							break
						}
					}

					start := time.Now()
					_, err := idx.Riskiest(ctx, selectedSize)
					riskiestMetrics.Record(time.Since(start), err == nil)

				default:
					start := time.Now()
					_ = idx.Count(ctx)
					countMetrics.Record(time.Since(start), true)
				}

				// Small random delay so workers do not spin in lockstep
				time.Sleep(time.Duration(r.Intn(100)) * time.Microsecond)
			}
		}(i)
	}

	time.Sleep(config.TestDuration)
	wg.Wait()

	totalTime := time.Since(testStart)
	snapshotCount := int64(totalTime / config.SnapshotInterval)

	return &APIPerformance{
		Update:   updateMetrics.CalculateResult("Update", totalTime, snapshotCount),
		RankOf:   rankOfMetrics.CalculateResult("RankOf", totalTime, snapshotCount),
		Riskiest: riskiestMetrics.CalculateResult("Riskiest", totalTime, snapshotCount),
		Count:    countMetrics.CalculateResult("Count", totalTime, snapshotCount),
	}
}

// MetricsCollector collects latency and success metrics for an API.
type MetricsCollector struct {
	latencies  []time.Duration
	successOps int64
	totalOps   int64
	mu         sync.Mutex
}

// Record records a single operation result.
func (mc *MetricsCollector) Record(latency time.Duration, success bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.latencies = append(mc.latencies, latency)
	mc.totalOps++
	if success {
		mc.successOps++
	}
}

// CalculateResult calculates benchmark results from collected metrics.
func (mc *MetricsCollector) CalculateResult(operation string, totalTime time.Duration, snapshotCount int64) *BenchmarkResult {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if len(mc.latencies) == 0 {
		return &BenchmarkResult{
			Operation:     operation,
			TotalOps:      mc.totalOps,
			TotalTime:     totalTime,
			SnapshotCount: snapshotCount,
			ErrorCount:    mc.totalOps - mc.successOps,
			SuccessRate:   0.0,
		}
	}

	sorted := make([]time.Duration, len(mc.latencies))
	copy(sorted, mc.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	p50Idx := int(float64(len(sorted)) * 0.50)
	p90Idx := int(float64(len(sorted)) * 0.90)
	p95Idx := int(float64(len(sorted)) * 0.95)
	p99Idx := int(float64(len(sorted)) * 0.99)

	var total time.Duration
	for _, lat := range mc.latencies {
		total += lat
	}
	avgLatency := total / time.Duration(len(mc.latencies))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	successRate := float64(mc.successOps) / float64(mc.totalOps) * 100.0

	return &BenchmarkResult{
		Operation:     operation,
		TotalOps:      mc.totalOps,
		TotalTime:     totalTime,
		AvgLatency:    avgLatency,
		P50Latency:    sorted[p50Idx],
		P90Latency:    sorted[p90Idx],
		P95Latency:    sorted[p95Idx],
		P99Latency:    sorted[p99Idx],
		Throughput:    float64(mc.totalOps) / totalTime.Seconds(),
		MemoryUsage:   m.Alloc,
		SnapshotCount: snapshotCount,
		ErrorCount:    mc.totalOps - mc.successOps,
		SuccessRate:   successRate,
	}
}

// generateComprehensiveReport prints a detailed performance report.
func generateComprehensiveReport(b *testing.B, apiPerf *APIPerformance, config *StressTestConfig) {
	b.Log("\n" + strings.Repeat("=", 100))
	b.Log("RISK INDEX STRESS TEST REPORT - ALL APIs UNDER PRESSURE")
	b.Log(strings.Repeat("=", 100))
	b.Logf("Configuration:")
	b.Logf("  Total Areas: %d", config.TotalAreas)
	b.Logf("  Concurrent Workers: %d", config.ConcurrentWorkers)
	b.Logf("  Snapshot Interval: %v", config.SnapshotInterval)
	b.Logf("  Top Cache Size: %d", config.TopCacheSize)
	b.Logf("  Test Duration: %v", config.TestDuration)
	b.Logf("  API Distribution: Update(%.1f%%) RankOf(%.1f%%) Riskiest(%.1f%%) Count(%.1f%%)",
		config.UpdateRatio*100, config.RankOfRatio*100, config.RiskiestRatio*100, config.CountRatio*100)
	b.Logf("")

	b.Logf("API PERFORMANCE SUMMARY:")
	b.Logf("%-15s %12s %12s %12s %12s %12s %12s %10s %10s", "API", "Total Ops", "Throughput", "Avg Latency", "P90 Latency", "P95 Latency", "P99 Latency", "Success%", "Errors")
	b.Logf("%-15s %12s %12s %12s %12s %12s %12s %10s %10s", "", "", "(ops/sec)", "(μs)", "(μs)", "(μs)", "(μs)", "", "")
	b.Log(strings.Repeat("-", 100))

	apis := []struct {
		name   string
		result *BenchmarkResult
	}{
		{"Update", apiPerf.Update},
		{"RankOf", apiPerf.RankOf},
		{"Riskiest", apiPerf.Riskiest},
		{"Count", apiPerf.Count},
	}

	for _, api := range apis {
		if api.result.TotalOps > 0 {
			b.Logf("%-15s %12d %12.0f %12d %12d %12d %12d %10.1f %10d",
				api.name,
				api.result.TotalOps,
				api.result.Throughput,
				api.result.AvgLatency.Microseconds(),
				api.result.P90Latency.Microseconds(),
				api.result.P95Latency.Microseconds(),
				api.result.P99Latency.Microseconds(),
				api.result.SuccessRate,
				api.result.ErrorCount,
			)
		}
	}

	b.Logf("")
	b.Logf("LATENCY CONSISTENCY:")
	for _, api := range apis {
		if api.result.TotalOps > 0 && api.result.P50Latency > 0 {
			latencySpread := float64(api.result.P99Latency) / float64(api.result.P50Latency)
			consistency := "good"
			if latencySpread > 10 {
				consistency = "poor"
			} else if latencySpread > 5 {
				consistency = "fair"
			}
			b.Logf("  %s: P99/P50 ratio = %.2fx (%s)", api.name, latencySpread, consistency)
		}
	}

	b.Logf("")
	b.Logf("RESOURCE USAGE:")
	for _, api := range apis {
		if api.result.MemoryUsage > 0 {
			b.Logf("  %s heap in use: %s", api.name, formatBytes(api.result.MemoryUsage))
			break
		}
	}
	b.Logf("  Snapshots published during test: ~%d", apiPerf.Update.SnapshotCount)

	b.Log(strings.Repeat("=", 100))
}

// formatBytes formats bytes into a human-readable size.
func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// Benchmark entry points for Go's testing framework.
func BenchmarkTreapIndex_MetroScale_ComprehensiveStressTest(b *testing.B) {
	config := DefaultStressTestConfig()
	ComprehensiveStressTest(b, config)
}

func BenchmarkTreapIndex_MetroScale_WriteHeavyStress(b *testing.B) {
	config := DefaultStressTestConfig()
	config.UpdateRatio = 0.70
	config.RankOfRatio = 0.20
	config.RiskiestRatio = 0.08
	config.CountRatio = 0.02
	ComprehensiveStressTest(b, config)
}

func BenchmarkTreapIndex_MetroScale_ReadHeavyStress(b *testing.B) {
	config := DefaultStressTestConfig()
	config.UpdateRatio = 0.15
	config.RankOfRatio = 0.50
	config.RiskiestRatio = 0.30
	config.CountRatio = 0.05
	ComprehensiveStressTest(b, config)
}
