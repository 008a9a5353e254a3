package signals

import "github.com/hejijunhao/bioslogtriage/internal/model"

const (
	// DefaultStallGapLines is the marker gap above which a stall is reported.
	DefaultStallGapLines = 5000

	stallConfidence = 0.6
)

// DetectStalls reports adjacent markers in the same phase bucket whose index
// gap exceeds gapLines. Lines outside every span share the "unknown" bucket.
func DetectStalls(markers []model.Marker, spans []model.PhaseSpan, gapLines int) []model.StallSignal {
	stalls := make([]model.StallSignal, 0)
	if len(markers) < 2 {
		return stalls
	}

	ordered := sortedMarkers(markers)
	for i := 0; i+1 < len(ordered); i++ {
		prev, cur := ordered[i], ordered[i+1]
		phase := phaseBucket(prev.Idx, spans)
		if phase != phaseBucket(cur.Idx, spans) {
			continue
		}
		gap := cur.Idx - prev.Idx
		if gap <= gapLines {
			continue
		}
		stalls = append(stalls, model.StallSignal{
			Phase:     phase,
			StartLine: prev.Idx,
			EndLine:   cur.Idx,
			GapLines:  gap,
			LastMilestone: model.Milestone{
				Kind:  prev.Kind,
				Line:  prev.Idx,
				Value: prev.Value,
			},
			Confidence: stallConfidence,
		})
	}
	return stalls
}

func phaseBucket(line int, spans []model.PhaseSpan) model.Phase {
	for _, s := range spans {
		if s.Contains(line) {
			return s.Phase
		}
	}
	return model.PhaseUnknown
}
