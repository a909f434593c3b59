package drill

import (
	"context"
	"fmt"
	"log"
)

// verifyResults re-reads every settled alert and checks its terminal
// status, response ledger, and acknowledgment flag against the script,
// then sanity-checks the risk listing ordering.
func verifyResults(ctx context.Context, config *Config, scenarios []Scenario, areas []AreaRank, stats *Stats) error {
	log.Println("🔍 Verifying results...")

	client := newHTTPClient(config.Timeout)

	verified := 0
	mismatched := 0
	skipped := 0
	for i := range scenarios {
		scenario := &scenarios[i]
		if !scenario.Settled {
			skipped++
			continue
		}

		if err := verifySingleAlert(ctx, client, config.BaseURL, scenario); err != nil {
			mismatched++
			log.Printf("⚠️  Alert %s mismatch: %v", scenario.AlertID, err)
			continue
		}
		verified++
	}

	// Verify risk listing consistency if we have area data
	if len(areas) > 0 {
		if err := verifyAreaOrdering(areas); err != nil {
			log.Printf("⚠️  Area ordering warning: %v", err)
		} else {
			log.Println("✅ Area ordering verified")
		}
	}

	displayRiskiestAreas(areas, config.Verbose)

	log.Printf("✅ Result verification completed (verified: %d, mismatched: %d, skipped: %d)",
		verified, mismatched, skipped)

	if mismatched > 0 {
		return fmt.Errorf("%d alerts did not match their scripts", mismatched)
	}
	return nil
}

// verifySingleAlert fetches one alert and compares the snapshot against
// the scenario's script.
func verifySingleAlert(ctx context.Context, client *HTTPClient, baseURL string, scenario *Scenario) error {
	url := baseURL + "/alerts/" + scenario.AlertID

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var alert Alert
	if err := unmarshalJSON(body, &alert); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if want := terminalStatusFor(scenario.Closer); alert.Status != want {
		return fmt.Errorf("status %q, want %q", alert.Status, want)
	}
	if len(alert.Responses) != len(scenario.Plan) {
		return fmt.Errorf("%d responses recorded, want %d", len(alert.Responses), len(scenario.Plan))
	}
	if want := expectedAllAcknowledged(scenario); alert.AllAcknowledged != want {
		return fmt.Errorf("all_acknowledged %v, want %v", alert.AllAcknowledged, want)
	}

	return nil
}

// expectedAllAcknowledged replays the script the way the alert ledger
// does: the latest response per guardian is authoritative, and every
// guardian must land on an acknowledgment.
func expectedAllAcknowledged(scenario *Scenario) bool {
	if len(scenario.Recipients) == 0 {
		return false
	}

	latest := make(map[string]string, len(scenario.Recipients))
	for _, planned := range scenario.Plan {
		latest[planned.ResponderID] = planned.Kind
	}

	for _, contact := range scenario.Recipients {
		if latest[contact.ID] != kindAcknowledged {
			return false
		}
	}
	return true
}

// verifyAreaOrdering checks that the risk listing is ordered riskiest
// first (lowest scores first) with dense, tie-sharing ranks.
func verifyAreaOrdering(areas []AreaRank) error {
	if areas[0].Rank != 1 {
		return fmt.Errorf("listing starts at rank %d, want 1", areas[0].Rank)
	}

	for i := 1; i < len(areas); i++ {
		if areas[i].Score < areas[i-1].Score {
			return fmt.Errorf("entry %d has lower score than entry %d", i, i-1)
		}
		if areas[i].Score == areas[i-1].Score {
			if areas[i].Rank != areas[i-1].Rank {
				return fmt.Errorf("entries %d and %d tie on score but differ in rank", i-1, i)
			}
			continue
		}
		if areas[i].Rank != areas[i-1].Rank+1 {
			return fmt.Errorf("entry %d has rank %d after rank %d, want %d",
				i, areas[i].Rank, areas[i-1].Rank, areas[i-1].Rank+1)
		}
	}

	return nil
}

// displayRiskiestAreas shows the ranked areas from the listing.
func displayRiskiestAreas(areas []AreaRank, verbose bool) {
	if len(areas) == 0 {
		log.Println("🥇 No tracked areas to display")
		return
	}

	log.Printf("🥇 Top %d riskiest areas:", len(areas))
	for _, area := range areas {
		log.Printf("   %d. %s - Score: %d (%s)", area.Rank, area.AreaID, area.Score, area.RiskLevel)
	}

	if verbose {
		minScore := areas[0].Score
		maxScore := areas[len(areas)-1].Score
		avgScore := calculateAverageScore(areas)

		log.Printf(`📊 Area score statistics:
   Average: %.1f
   Riskiest: %d
   Safest: %d
`, avgScore, minScore, maxScore)
	}
}

// calculateAverageScore calculates the average score across the listing.
func calculateAverageScore(areas []AreaRank) float64 {
	if len(areas) == 0 {
		return 0
	}

	sum := 0
	for _, area := range areas {
		sum += area.Score
	}

	return float64(sum) / float64(len(areas))
}
