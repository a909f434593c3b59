package drill

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/guardiansafety/aegis/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	requestIDDivisor   = 10000
	phoneSuffixDivisor = 10000
	planTypeDivisor    = 8
	priorityDivisor    = 8
	messageDivisor     = 6
)

// Constants for the scripted walk geometry. Origins land on distinct
// scoring grid cells (three-decimal buckets) fanned out around the
// simulated city center; pings drift within a block of the origin.
const (
	baseLatitude   = 37.7749
	baseLongitude  = -122.4194
	gridStep       = 0.004
	gridColumns    = 20
	gridHalfSpan   = 0.040
	cellJitter     = 0.0004
	pingDrift      = 0.0010
	accuracyFloorM = 5.0
	accuracySpanM  = 45.0
)

// Constants for response plan cases.
const (
	caseAllAcknowledge  = 0
	caseFirstEnroute    = 1
	caseOneDeclines     = 2
	caseSilentGuardians = 3
	caseFalseAlarm      = 4
	caseEscalating      = 5
	casePartialTurnout  = 6
	caseLoneGuardian    = 7
)

// Constants for priority distribution cases. Panic dials skew critical.
const (
	priorityCriticalCeiling = 3
	priorityHighCeiling     = 5
	priorityMediumCeiling   = 6
)

// Response kind and closer constants matching the API vocabulary.
const (
	kindAcknowledged = "acknowledged"
	kindEnroute      = "enroute"
	kindDeclined     = "declined"

	closerResolve = "resolve"
	closerCancel  = "cancel"
)

// drillMessages are the canned SOS texts scenarios draw from.
var drillMessages = []string{
	"Drill: walking home alone, stay with me",
	"Drill: confirm you can see my location",
	"Drill: car trouble on the bridge approach",
	"Drill: feeling unsafe near the station",
	"Drill: medical assistance check",
	"Drill: route deviation check-in",
}

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// generateScenarios creates the specified number of drill scenarios with
// unique senders and guardian sets.
func generateScenarios(ctx context.Context, config *Config, stats *Stats) ([]Scenario, error) {
	logger.Get().Info(ctx, "generating drill scenarios with unique senders", logger.Int("numAlerts", config.NumAlerts))

	scenarios := make([]Scenario, config.NumAlerts)

	// Pre-allocate sender IDs to ensure uniqueness
	senderIDs := make([]string, config.NumAlerts)
	for i := 0; i < config.NumAlerts; i++ {
		senderIDs[i] = uuid.New().String()
	}

	// Generate scenarios concurrently
	type scenarioResult struct {
		index    int
		scenario Scenario
		err      error
	}

	resultChan := make(chan scenarioResult, config.NumAlerts)

	// Use worker pool for scenario generation
	workerCount := minInt(config.Workers, config.NumAlerts)
	scenariosPerWorker := config.NumAlerts / workerCount

	for worker := 0; worker < workerCount; worker++ {
		start := worker * scenariosPerWorker
		end := start + scenariosPerWorker
		if worker == workerCount-1 {
			end = config.NumAlerts // Last worker gets remaining scenarios
		}

		go func(_ int, start, end int) {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					resultChan <- scenarioResult{index: i, err: ctx.Err()}
					return
				default:
					scenario := generateSingleScenario(i, senderIDs[i], config)
					resultChan <- scenarioResult{index: i, scenario: scenario, err: nil}
				}
			}
		}(worker, start, end)
	}

	// Collect results
	for i := 0; i < config.NumAlerts; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during scenario generation: %w", ctx.Err())
		case result := <-resultChan:
			if result.err != nil {
				return nil, fmt.Errorf("failed to generate scenario %d: %w", result.index, result.err)
			}
			scenarios[result.index] = result.scenario
		}
	}

	stats.ScenariosGenerated = len(scenarios)
	logger.Get().Info(ctx, "generated scenarios successfully", logger.Int("count", len(scenarios)))

	return scenarios, nil
}

// generateSingleScenario creates a single scenario with the given index and sender ID.
func generateSingleScenario(index int, senderID string, config *Config) Scenario {
	origin := originFor(index)

	recipients := make([]Contact, config.Recipients)
	for j := range recipients {
		recipients[j] = Contact{
			ID:    uuid.New().String(),
			Name:  "Guardian " + strconv.Itoa(index+1) + "-" + strconv.Itoa(j+1),
			Phone: generatePhone(),
		}
	}

	plan, closer := generateResponsePlan(recipients)

	return Scenario{
		RequestID:  generateRequestID(index),
		SenderID:   senderID,
		SenderName: "Drill User " + strconv.Itoa(index+1),
		Message:    pickMessage(),
		Priority:   generateVariedPriority(),
		Origin:     origin,
		Recipients: recipients,
		Pings:      generatePings(origin, config.Pings),
		Plan:       plan,
		Closer:     closer,
	}
}

// originFor fans scenario origins across distinct scoring grid cells
// around the city center, with jitter small enough to stay in-cell.
func originFor(index int) Location {
	row := index / gridColumns
	col := index % gridColumns

	lat := baseLatitude - gridHalfSpan + float64(row)*gridStep + getRandomFloat()*cellJitter
	lng := baseLongitude - gridHalfSpan + float64(col)*gridStep + getRandomFloat()*cellJitter

	return Location{
		Latitude:  lat,
		Longitude: lng,
		Accuracy:  accuracyFloorM + getRandomFloat()*accuracySpanM,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// generatePings scripts a short walk drifting away from the origin.
func generatePings(origin Location, count int) []Location {
	pings := make([]Location, count)
	lat, lng := origin.Latitude, origin.Longitude
	for i := range pings {
		lat += (getRandomFloat() - 0.5) * pingDrift
		lng += (getRandomFloat() - 0.5) * pingDrift
		pings[i] = Location{
			Latitude:  lat,
			Longitude: lng,
			Accuracy:  accuracyFloorM + getRandomFloat()*accuracySpanM,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
	}
	return pings
}

// generateResponsePlan scripts how the guardian set reacts and how the
// owner settles the alert.
func generateResponsePlan(recipients []Contact) ([]PlannedResponse, string) {
	randNum, _ := rand.Int(rand.Reader, big.NewInt(planTypeDivisor))

	plan := make([]PlannedResponse, 0, len(recipients)+1)
	closer := closerResolve

	switch randNum.Int64() {
	case caseAllAcknowledge:
		// Every guardian acknowledges - most orderly drill
		for _, c := range recipients {
			plan = append(plan, planned(c, kindAcknowledged))
		}
	case caseFirstEnroute:
		// First guardian heads out, the rest acknowledge
		for j, c := range recipients {
			plan = append(plan, planned(c, kindAcknowledged))
			if j == 0 {
				plan = append(plan, planned(c, kindEnroute))
			}
		}
	case caseOneDeclines:
		// Last guardian declines, the rest acknowledge
		for j, c := range recipients {
			if j == len(recipients)-1 {
				plan = append(plan, planned(c, kindDeclined))
			} else {
				plan = append(plan, planned(c, kindAcknowledged))
			}
		}
	case caseSilentGuardians:
		// Nobody reacts; owner calls it off
		closer = closerCancel
	case caseFalseAlarm:
		// One acknowledgement, then the owner cancels
		if len(recipients) > 0 {
			plan = append(plan, planned(recipients[0], kindAcknowledged))
		}
		closer = closerCancel
	case caseEscalating:
		// Everyone acknowledges and the first escalates to enroute
		for _, c := range recipients {
			plan = append(plan, planned(c, kindAcknowledged))
		}
		if len(recipients) > 0 {
			plan = append(plan, planned(recipients[0], kindEnroute))
		}
	case casePartialTurnout:
		// Half the guardians acknowledge
		half := (len(recipients) + 1) / 2
		for j := 0; j < half; j++ {
			plan = append(plan, planned(recipients[j], kindAcknowledged))
		}
	case caseLoneGuardian:
		// A single guardian acknowledges and heads out
		if len(recipients) > 0 {
			plan = append(plan, planned(recipients[0], kindAcknowledged))
			plan = append(plan, planned(recipients[0], kindEnroute))
		}
	default:
		for _, c := range recipients {
			plan = append(plan, planned(c, kindAcknowledged))
		}
	}

	return plan, closer
}

func planned(c Contact, kind string) PlannedResponse {
	return PlannedResponse{
		ResponderID:   c.ID,
		ResponderName: c.Name,
		Kind:          kind,
	}
}

// generateVariedPriority skews the priority mix toward critical the way
// real panic dials do.
func generateVariedPriority() string {
	randNum, _ := rand.Int(rand.Reader, big.NewInt(priorityDivisor))
	switch {
	case randNum.Int64() <= priorityCriticalCeiling:
		return "critical"
	case randNum.Int64() <= priorityHighCeiling:
		return "high"
	case randNum.Int64() <= priorityMediumCeiling:
		return "medium"
	default:
		return "low"
	}
}

// pickMessage chooses one of the canned drill texts.
func pickMessage() string {
	randNum, _ := rand.Int(rand.Reader, big.NewInt(messageDivisor))
	return drillMessages[randNum.Int64()]
}

// generatePhone produces a plausible guardian phone number.
func generatePhone() string {
	n, _ := rand.Int(rand.Reader, big.NewInt(phoneSuffixDivisor))
	return "+1415555" + fmt.Sprintf("%04d", n.Int64())
}

// generateRequestID produces a unique trigger request ID so replays are
// detectable server-side.
func generateRequestID(index int) string {
	randNum, _ := rand.Int(rand.Reader, big.NewInt(requestIDDivisor))
	return "drill_" + strconv.FormatInt(int64(index), 10) + "_" + strconv.FormatInt(time.Now().Unix(), 10) + "_" + strconv.FormatInt(randNum.Int64(), 10)
}

// minInt returns the minimum of two integers.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
