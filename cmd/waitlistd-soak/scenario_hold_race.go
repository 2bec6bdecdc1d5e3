// Package main - hold race scenario: fires concurrent HoldSlot calls at a
// single slot and checks exactly one caller wins.
package main

import (
	"fmt"
	"sync"
	"time"
)

// runHoldRaceScenario fires cfg.Concurrency concurrent HoldSlot calls at
// cfg.SlotID and asserts exactly one succeeds; every loser must see a
// 409 SLOT_NO_LONGER_AVAILABLE problem, never a 5xx or a second 200.
func runHoldRaceScenario(cfg Config, client *WaitlistClient) ScenarioResult {
	result := ScenarioResult{
		Name:         "hold_race",
		Observations: make(map[string]int64),
		Failures:     []Failure{},
	}

	if cfg.SlotID == "" {
		result.Status = scenarioStatusUnimplemented
		result.Reason = "no -slot supplied; hold_race requires a pre-seeded slot ID"
		return result
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		wins     int
		conflicts int
		other    int
	)

	start := make(chan struct{})
	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			res := client.HoldSlot(cfg.TenantID, cfg.SlotID, cfg.HoldTTLMinutes)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case res.Error != nil:
				other++
				result.Failures = append(result.Failures, Failure{
					Time: time.Now(), RuleID: "NET_ERROR", Message: res.Error.Error(),
				})
			case res.HTTPStatus == 200:
				wins++
			case res.HTTPStatus == 409 && res.ProblemCode == "SLOT_NO_LONGER_AVAILABLE":
				conflicts++
			default:
				other++
				result.Failures = append(result.Failures, Failure{
					Time:    time.Now(),
					RuleID:  "UNEXPECTED_STATUS",
					Message: fmt.Sprintf("status=%d code=%s", res.HTTPStatus, res.ProblemCode),
				})
			}
		}()
	}
	close(start)
	wg.Wait()

	result.Observations["wins"] = int64(wins)
	result.Observations["conflicts"] = int64(conflicts)
	result.Observations["other"] = int64(other)
	result.Observations["concurrency"] = int64(cfg.Concurrency)

	result.Pass = wins == 1 && other == 0 && wins+conflicts == cfg.Concurrency
	if !result.Pass && len(result.Failures) == 0 {
		result.Failures = append(result.Failures, Failure{
			Time:    time.Now(),
			RuleID:  "SINGLE_WINNER_VIOLATED",
			Message: fmt.Sprintf("want exactly 1 winner, got wins=%d conflicts=%d other=%d", wins, conflicts, other),
		})
	}
	return result
}
