package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/guardiansafety/aegis/internal/drill"
)

// Default configuration constants.
const (
	defaultNumAlerts    = 25
	defaultRecipients   = 3
	defaultPings        = 4
	defaultTopAreas     = 10
	defaultWorkers      = 2 // multiplier for runtime.NumCPU()
	defaultTimeout      = 30 * time.Second
	defaultDrillTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:8080", "Base URL of the service")
		numAlerts  = flag.Int("alerts", defaultNumAlerts, "Number of emergency alerts to drill")
		recipients = flag.Int("recipients", defaultRecipients, "Guardians per alert")
		pings      = flag.Int("pings", defaultPings, "Location pings per alert")
		topAreas   = flag.Int("top", defaultTopAreas, "Number of riskiest areas to fetch")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Output file for drill scenarios (default: drill_scenarios_TIMESTAMP.json)")
		logFile    = flag.String("log", "", "Log file for drill output (default: drill_log_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		drill.ShowHelp()
		return
	}

	// Clamp knobs that would stall the worker pools
	if *numAlerts < 1 {
		*numAlerts = 1
	}
	if *recipients < 1 {
		*recipients = 1
	}
	if *workers < 1 {
		*workers = 1
	}

	// Setup logging
	if err := drill.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultDrillTimeout)
	defer cancel()

	// Create drill configuration
	config := &drill.Config{
		BaseURL:    *baseURL,
		NumAlerts:  *numAlerts,
		Recipients: *recipients,
		Pings:      *pings,
		TopAreas:   *topAreas,
		Workers:    *workers,
		Timeout:    *timeout,
		OutputFile: *outputFile,
		LogFile:    *logFile,
		Verbose:    *verbose,
	}

	// Run the drill
	if err := drill.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Drill failed: " + err.Error() + "\n")
		return
	}
}
