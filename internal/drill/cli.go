package drill

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/guardiansafety/aegis/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	// Initialize the logger first
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "drill_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the drill tool.
func ShowHelp() {
	os.Stdout.WriteString(`Aegis Emergency Drill Tool
==========================

A concurrent tool that exercises the Aegis safety engine end to end:
triggers alerts, streams location pings, plays responder events, settles
every alert and checks the ranked area listings afterwards.

Usage:
  go run cmd/drill/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:8080")
  -alerts int
        Number of alerts to trigger (default 25)
  -recipients int
        Guardians per alert (default 3)
  -pings int
        Location pings per alert (default 4)
  -top int
        Number of riskiest areas to fetch, max 100 (default 10)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Output file for drill scenarios (default: drill_scenarios_TIMESTAMP.json)
  -log string
        Log file for drill output (default: drill_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Drill with default settings
  go run cmd/drill/main.go

  # Drill with custom parameters
  go run cmd/drill/main.go -alerts 100 -workers 16 -url http://localhost:9090

  # Drill with verbose output
  go run cmd/drill/main.go -verbose -alerts 50

  # Drill with custom log file
  go run cmd/drill/main.go -alerts 100 -log my_drill.log
`)
}
