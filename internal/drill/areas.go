package drill

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// retrieveReadings sweeps the scorer across every scenario origin
// concurrently so the risk index has fresh material to rank.
func retrieveReadings(ctx context.Context, config *Config, scenarios []Scenario, stats *Stats) ([]Reading, error) {
	log.Printf("🔍 Scoring %d drill origins with %d workers...", len(scenarios), config.Workers)

	client := newHTTPClient(config.Timeout)

	// Results storage
	readings := make([]Reading, len(scenarios))
	var (
		retrieved int64
		failed    int64
	)

	// Progress reporting
	var lastReportNanos int64
	reportInterval := 1 * time.Second

	// Create worker pool over scenario indexes
	indexChan := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for index := range indexChan {
				select {
				case <-ctx.Done():
					return
				default:
					origin := scenarios[index].Origin
					reading, err := retrieveSingleReading(ctx, client, config.BaseURL, origin.Latitude, origin.Longitude)

					if err != nil {
						atomic.AddInt64(&failed, 1)
						if config.Verbose {
							log.Printf("⚠️  Failed to score %s: %v", scenarios[index].RequestID, err)
						}
					} else {
						readings[index] = reading
						atomic.AddInt64(&retrieved, 1)
					}

					// Progress reporting
					now := time.Now().UnixNano()
					last := atomic.LoadInt64(&lastReportNanos)
					if now-last >= int64(reportInterval) && atomic.CompareAndSwapInt64(&lastReportNanos, last, now) {
						total := atomic.LoadInt64(&retrieved) + atomic.LoadInt64(&failed)
						ret := atomic.LoadInt64(&retrieved)
						fail := atomic.LoadInt64(&failed)

						if config.Verbose {
							log.Printf("📊 Scoring progress: %d/%d retrieved (success: %d, failed: %d)",
								total, len(scenarios), ret, fail)
						} else {
							fmt.Printf("\r🔍 Scores: %d/%d retrieved (success: %d, failed: %d)",
								total, len(scenarios), ret, fail)
						}
					}
				}
			}
		}()
	}

	// Send scenario indexes to workers
	go func() {
		defer close(indexChan)
		for i := range scenarios {
			select {
			case <-ctx.Done():
				return
			case indexChan <- i:
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	// Final progress report
	if !config.Verbose {
		fmt.Println() // New line after progress indicator
	}

	// Filter out empty readings (failed retrievals)
	validReadings := make([]Reading, 0, len(readings))
	for _, reading := range readings {
		if reading.RiskLevel != "" { // Empty RiskLevel indicates failed retrieval
			validReadings = append(validReadings, reading)
		}
	}

	// Update stats
	stats.ReadingsRetrieved = len(validReadings)

	log.Printf(`✅ Scoring sweep completed:
   Retrieved: %d
   Failed: %d
`, len(validReadings), int(atomic.LoadInt64(&failed)))

	return validReadings, nil
}

// retrieveSingleReading scores a single coordinate pair.
func retrieveSingleReading(ctx context.Context, client *HTTPClient, baseURL string, lat, lng float64) (Reading, error) {
	url := fmt.Sprintf("%s/safety/score?lat=%f&lng=%f", baseURL, lat, lng)

	resp, err := client.Get(ctx, url)
	if err != nil {
		return Reading{}, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return Reading{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return Reading{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var reading Reading
	if err := unmarshalJSON(body, &reading); err != nil {
		return Reading{}, fmt.Errorf("failed to parse response: %w", err)
	}

	return reading, nil
}

// getRiskiestAreas retrieves the top N riskiest tracked areas.
func getRiskiestAreas(ctx context.Context, config *Config, stats *Stats) ([]AreaRank, error) {
	log.Printf("🥇 Getting top %d riskiest areas...", config.TopAreas)

	client := newHTTPClient(config.Timeout)
	url := fmt.Sprintf("%s/safety/areas?limit=%d", config.BaseURL, config.TopAreas)

	resp, err := client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var areas []AreaRank
	if err := unmarshalJSON(body, &areas); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	stats.AreasRetrieved = len(areas)
	log.Printf("✅ Retrieved %d ranked areas", len(areas))

	return areas, nil
}
