package drill

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/guardiansafety/aegis/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run executes the complete emergency drill.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting aegis emergency drill",
		logger.String("baseURL", config.BaseURL),
		logger.Int("alerts", config.NumAlerts),
		logger.Int("recipients", config.Recipients),
		logger.Int("pings", config.Pings),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Int("topAreas", config.TopAreas),
		logger.String("logFile", config.LogFile),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate drill scenarios
	scenarios, err := generateScenarios(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("scenario generation failed: %w", err)
	}

	// Step 3: Run the alert drills concurrently
	if err := runDrills(ctx, config, scenarios, stats); err != nil {
		return fmt.Errorf("drill run failed: %w", err)
	}

	// Step 4: Wait for journaling and notifications to settle
	logger.Get().Info(ctx, "waiting for alerts to settle")
	time.Sleep(SettleDelay)

	// Step 5: Sweep the scorer across the drill origins
	readings, err := retrieveReadings(ctx, config, scenarios, stats)
	if err != nil {
		return fmt.Errorf("scoring sweep failed: %w", err)
	}
	if len(readings) == 0 {
		return fmt.Errorf("scoring sweep produced no readings")
	}

	// Step 6: Get the riskiest tracked areas
	areas, err := getRiskiestAreas(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("area retrieval failed: %w", err)
	}

	// Step 7: Verify results
	if err := verifyResults(ctx, config, scenarios, areas, stats); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Step 8: Save scenarios to file
	if err := saveScenariosToFile(ctx, config, scenarios); err != nil {
		logger.Get().Warn(ctx, "failed to save scenarios to file", logger.Error(err))
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "drill completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveScenariosToFile saves the drill scenarios, including the alert IDs
// they produced, to a JSON file.
func saveScenariosToFile(ctx context.Context, config *Config, scenarios []Scenario) error {
	if len(scenarios) == 0 {
		return fmt.Errorf("no scenarios to save")
	}

	// Determine output filename
	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "drill_scenarios_" + timestamp + ".json"
	}

	// Ensure the directory exists
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Write scenarios to file
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	// Write JSON array
	if _, err := file.WriteString("[\n"); err != nil {
		return fmt.Errorf("failed to write opening bracket: %w", err)
	}

	for i, scenario := range scenarios {
		jsonData, err := marshalJSON(scenario)
		if err != nil {
			return fmt.Errorf("failed to marshal scenario %d: %w", i, err)
		}

		if _, err := file.Write(jsonData); err != nil {
			return fmt.Errorf("failed to write scenario %d: %w", i, err)
		}

		// Add comma except for last scenario
		if i < len(scenarios)-1 {
			if _, err := file.WriteString(","); err != nil {
				return fmt.Errorf("failed to write comma: %w", err)
			}
		}
		_, _ = file.WriteString("\n")
	}

	if _, err := file.WriteString("]\n"); err != nil {
		return fmt.Errorf("failed to write closing bracket: %w", err)
	}

	logger.Get().Info(ctx, "scenarios saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final drill statistics.
func displayFinalStats(stats *Stats) {
	var settleRate, drillsPerSecond float64

	if stats.AlertsTriggered > 0 {
		settleRate = float64(stats.AlertsSettled) / float64(stats.AlertsTriggered) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		drillsPerSecond = float64(stats.AlertsTriggered) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("scenariosGenerated", stats.ScenariosGenerated),
		logger.Int("alertsTriggered", stats.AlertsTriggered),
		logger.Int("alertsSettled", stats.AlertsSettled),
		logger.Int("alertsFailed", stats.AlertsFailed),
		logger.Int("closeReplays", stats.CloseReplays),
		logger.Int("responsesPosted", stats.ResponsesPosted),
		logger.Int("pingsPosted", stats.PingsPosted),
		logger.Int("readingsRetrieved", stats.ReadingsRetrieved),
		logger.Int("areasRetrieved", stats.AreasRetrieved),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("settleRate", settleRate),
		logger.Float64("drillsPerSecond", drillsPerSecond))
}
