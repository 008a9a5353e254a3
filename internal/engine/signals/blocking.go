package signals

import (
	"math"

	"github.com/hejijunhao/bioslogtriage/internal/model"
)

// BlockingScore is severity points plus confidence points minus the phase
// penalty.
func BlockingScore(ev model.Event) int {
	return ev.Severity.Score() + ConfidencePoints(ev.Confidence) - ev.Where.Phase.BlockingPenalty()
}

// ConfidencePoints converts a confidence to ranking points, rounding half to even.
func ConfidencePoints(c float64) int {
	return int(math.RoundToEven(c * 20))
}

// SelectBootBlocking returns the id of the highest-scoring boot-blocking event.
// Ties go to the earliest hit line. ok is false when no event blocks boot.
func SelectBootBlocking(events []model.Event) (id string, ok bool) {
	var best *model.Event
	bestScore := 0
	for i := range events {
		ev := &events[i]
		if !ev.BootBlocking {
			continue
		}
		score := BlockingScore(*ev)
		if best == nil || score > bestScore || (score == bestScore && ev.HitLine() < best.HitLine()) {
			best, bestScore = ev, score
		}
	}
	if best == nil {
		return "", false
	}
	return best.EventID, true
}
