package drill

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	jsonData, err := marshalJSON(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// marshalJSON marshals a struct to JSON
func marshalJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// unmarshalJSON unmarshals JSON to a struct
func unmarshalJSON(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// postExpect posts a JSON body and enforces the expected status code,
// returning the response body.
func postExpect(ctx context.Context, client *HTTPClient, url string, body interface{}, wantStatus int) ([]byte, error) {
	resp, err := client.Post(ctx, url, body)
	if err != nil {
		return nil, err
	}

	data, err := readResponseBody(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != wantStatus {
		return nil, fmt.Errorf("unexpected status %d from %s: %s", resp.StatusCode, url, string(data))
	}
	return data, nil
}

// drillOutcome summarizes one scenario's trip through the lifecycle.
type drillOutcome struct {
	triggered       bool
	replayed        bool
	pingsPosted     int
	responsesPosted int
	err             error
}

// runDrills walks every scenario through its full lifecycle concurrently.
func runDrills(ctx context.Context, config *Config, scenarios []Scenario, stats *Stats) error {
	log.Printf("🚨 Running %d alert drills with %d workers...", len(scenarios), config.Workers)

	client := newHTTPClient(config.Timeout)

	// Counters for statistics
	var (
		completed int64
		triggered int64
		settled   int64
		failed    int64
		replays   int64
		responses int64
		pings     int64
	)

	// Progress reporting
	var lastReportNanos int64
	reportInterval := 1 * time.Second

	// Create worker pool over scenario indexes so each worker owns its slot
	indexChan := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for idx := range indexChan {
				select {
				case <-ctx.Done():
					return
				default:
					outcome := runSingleDrill(ctx, client, config, &scenarios[idx])

					// Update counters
					atomic.AddInt64(&completed, 1)
					atomic.AddInt64(&pings, int64(outcome.pingsPosted))
					atomic.AddInt64(&responses, int64(outcome.responsesPosted))
					if outcome.triggered {
						atomic.AddInt64(&triggered, 1)
					}
					if outcome.replayed {
						atomic.AddInt64(&replays, 1)
					}
					if outcome.err != nil {
						atomic.AddInt64(&failed, 1)
						if config.Verbose {
							log.Printf("⚠️  Drill %s failed: %v", scenarios[idx].RequestID, outcome.err)
						}
					} else {
						scenarios[idx].Settled = true
						atomic.AddInt64(&settled, 1)
					}

					// Progress reporting
					now := time.Now().UnixNano()
					last := atomic.LoadInt64(&lastReportNanos)
					if now-last >= int64(reportInterval) && atomic.CompareAndSwapInt64(&lastReportNanos, last, now) {
						total := atomic.LoadInt64(&completed)
						good := atomic.LoadInt64(&settled)
						bad := atomic.LoadInt64(&failed)

						if config.Verbose {
							log.Printf("📊 Progress: %d/%d drills (settled: %d, failed: %d)",
								total, len(scenarios), good, bad)
						} else {
							fmt.Printf("\r🚨 Drills: %d/%d (settled: %d, failed: %d)",
								total, len(scenarios), good, bad)
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

	// Update stats
	stats.AlertsTriggered = int(atomic.LoadInt64(&triggered))
	stats.AlertsSettled = int(atomic.LoadInt64(&settled))
	stats.AlertsFailed = int(atomic.LoadInt64(&failed))
	stats.CloseReplays = int(atomic.LoadInt64(&replays))
	stats.ResponsesPosted = int(atomic.LoadInt64(&responses))
	stats.PingsPosted = int(atomic.LoadInt64(&pings))

	log.Printf(`✅ Drill run completed:
   Settled: %d
   Failed: %d
   Close replays honored: %d
`, stats.AlertsSettled, stats.AlertsFailed, stats.CloseReplays)

	return nil
}

// runSingleDrill pushes one scenario through trigger, pings, responses,
// close, and a close replay.
func runSingleDrill(ctx context.Context, client *HTTPClient, config *Config, scenario *Scenario) drillOutcome {
	var outcome drillOutcome

	alert, err := triggerAlert(ctx, client, config, scenario)
	if err != nil {
		outcome.err = fmt.Errorf("trigger: %w", err)
		return outcome
	}
	outcome.triggered = true
	scenario.AlertID = alert.ID

	for i := range scenario.Pings {
		if err := postPing(ctx, client, config, scenario.AlertID, scenario.Pings[i]); err != nil {
			outcome.err = fmt.Errorf("ping %d: %w", i, err)
			return outcome
		}
		outcome.pingsPosted++
	}

	for i := range scenario.Plan {
		if err := postResponse(ctx, client, config, scenario.AlertID, scenario.Plan[i]); err != nil {
			outcome.err = fmt.Errorf("response %d: %w", i, err)
			return outcome
		}
		outcome.responsesPosted++
	}

	want := terminalStatusFor(scenario.Closer)

	settledAlert, err := closeAlert(ctx, client, config, scenario)
	if err != nil {
		outcome.err = fmt.Errorf("close: %w", err)
		return outcome
	}
	if settledAlert.Status != want {
		outcome.err = fmt.Errorf("close: got status %q, want %q", settledAlert.Status, want)
		return outcome
	}

	// Replaying the close must hand back the settled snapshot unchanged
	replayAlert, err := closeAlert(ctx, client, config, scenario)
	if err != nil {
		outcome.err = fmt.Errorf("close replay: %w", err)
		return outcome
	}
	if replayAlert.Status != want {
		outcome.err = fmt.Errorf("close replay: got status %q, want %q", replayAlert.Status, want)
		return outcome
	}
	outcome.replayed = true

	return outcome
}

// triggerAlert fires the scenario's emergency and captures the alert ID.
func triggerAlert(ctx context.Context, client *HTTPClient, config *Config, scenario *Scenario) (*Alert, error) {
	origin := scenario.Origin
	req := TriggerRequest{
		RequestID:  scenario.RequestID,
		SenderID:   scenario.SenderID,
		SenderName: scenario.SenderName,
		Message:    scenario.Message,
		Priority:   scenario.Priority,
		Location:   &origin,
		Recipients: scenario.Recipients,
	}

	body, err := postExpect(ctx, client, config.BaseURL+"/alerts", req, StatusCreated)
	if err != nil {
		return nil, err
	}

	var alert Alert
	if err := unmarshalJSON(body, &alert); err != nil {
		return nil, fmt.Errorf("failed to parse alert: %w", err)
	}
	if alert.ID == "" {
		return nil, fmt.Errorf("trigger returned no alert ID")
	}
	return &alert, nil
}

// postPing reports one scripted location sample for the alert.
func postPing(ctx context.Context, client *HTTPClient, config *Config, alertID string, ping Location) error {
	url := config.BaseURL + "/alerts/" + alertID + "/location"
	_, err := postExpect(ctx, client, url, ping, StatusNoContent)
	return err
}

// postResponse records one scripted guardian response on the alert.
func postResponse(ctx context.Context, client *HTTPClient, config *Config, alertID string, planned PlannedResponse) error {
	url := config.BaseURL + "/alerts/" + alertID + "/respond"
	req := RespondRequest{
		ResponderID:   planned.ResponderID,
		ResponderName: planned.ResponderName,
		Kind:          planned.Kind,
	}
	_, err := postExpect(ctx, client, url, req, StatusOK)
	return err
}

// closeAlert settles the alert the way the scenario scripts it.
func closeAlert(ctx context.Context, client *HTTPClient, config *Config, scenario *Scenario) (*Alert, error) {
	url := config.BaseURL + "/alerts/" + scenario.AlertID + "/" + scenario.Closer
	req := CloseRequest{ActorID: scenario.SenderID}

	body, err := postExpect(ctx, client, url, req, StatusOK)
	if err != nil {
		return nil, err
	}

	var alert Alert
	if err := unmarshalJSON(body, &alert); err != nil {
		return nil, fmt.Errorf("failed to parse alert: %w", err)
	}
	return &alert, nil
}

// terminalStatusFor maps a closer verb to the status it should land on.
func terminalStatusFor(closer string) string {
	if closer == closerCancel {
		return "cancelled"
	}
	return "resolved"
}
