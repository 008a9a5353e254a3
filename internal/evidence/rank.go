// Package evidence builds the size-budgeted evidence pack handed to a
// language model.
package evidence

import (
	"sort"

	"github.com/hejijunhao/bioslogtriage/internal/engine/signals"
	"github.com/hejijunhao/bioslogtriage/internal/model"
)

const blockingBonus = 1000

// RankScore is the explicit score when set, else severity plus confidence
// points, plus a large bonus for boot-blocking events.
func RankScore(ev model.Event) int {
	score := ev.Severity.Score() + signals.ConfidencePoints(ev.Confidence)
	if ev.Score != nil {
		score = *ev.Score
	}
	if ev.BootBlocking {
		score += blockingBonus
	}
	return score
}

// Rank returns the events ordered by descending rank score, ties by earliest
// start line. The input is not modified.
func Rank(events []model.Event) []model.Event {
	ranked := append([]model.Event(nil), events...)
	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := RankScore(ranked[i]), RankScore(ranked[j])
		if si != sj {
			return si > sj
		}
		return ranked[i].HitLine() < ranked[j].HitLine()
	})
	return ranked
}
