package model

// ActionPriority ranks a recommended action.
type ActionPriority string

const (
	PriorityP0 ActionPriority = "P0"
	PriorityP1 ActionPriority = "P1"
	PriorityP2 ActionPriority = "P2"
)

// NeedPriority ranks a missing-evidence request.
type NeedPriority string

const (
	NeedHigh   NeedPriority = "high"
	NeedMedium NeedPriority = "medium"
	NeedLow    NeedPriority = "low"
)

// Action is a concrete next step suggested by the model.
type Action struct {
	Action             string         `json:"action"`
	Priority           ActionPriority `json:"priority"`
	ExpectedSignal     string         `json:"expected_signal"`
	SupportingEventIDs []string       `json:"supporting_event_ids"`
}

// Hypothesis is a candidate root cause.
type Hypothesis struct {
	Title              string   `json:"title"`
	Confidence         float64  `json:"confidence"`
	SupportingEventIDs []string `json:"supporting_event_ids"`
	Reasoning          string   `json:"reasoning"`
	NextActions        []Action `json:"next_actions"`
}

// MissingEvidence is something the model needs to raise its confidence.
type MissingEvidence struct {
	Need               string       `json:"need"`
	Why                string       `json:"why"`
	How                string       `json:"how"`
	Priority           NeedPriority `json:"priority"`
	SupportingEventIDs []string     `json:"supporting_event_ids"`
}

// LLMError describes why a model pass fell back.
type LLMError struct {
	Type         string   `json:"type"`
	Message      string   `json:"message"`
	Detail       string   `json:"detail"`
	Model        string   `json:"model"`
	TimeoutS     float64  `json:"timeout_s"`
	PromptChars  int      `json:"prompt_chars"`
	ReturnedKeys []string `json:"returned_keys"`
}

// Synthesis is the validated root-cause synthesis.
type Synthesis struct {
	OverallConfidence      float64           `json:"overall_confidence"`
	ExecutiveSummary       string            `json:"executive_summary"`
	RootCauseHypotheses    []Hypothesis      `json:"root_cause_hypotheses"`
	RecommendedNextActions []Action          `json:"recommended_next_actions"`
	MissingEvidence        []MissingEvidence `json:"missing_evidence"`
	Errors                 []LLMError        `json:"errors,omitempty"`
	ModelInfo              map[string]any    `json:"model_info,omitempty"`
}

// Fact is one grounded observation extracted in the facts pass.
type Fact struct {
	Fact               string   `json:"fact"`
	SupportingEventIDs []string `json:"supporting_event_ids"`
	Confidence         float64  `json:"confidence"`
}

// Facts is the validated output of the facts pass.
type Facts struct {
	OverallGroundingConfidence float64        `json:"overall_grounding_confidence"`
	Facts                      []Fact         `json:"facts"`
	Errors                     []LLMError     `json:"errors,omitempty"`
	ModelInfo                  map[string]any `json:"model_info,omitempty"`
}
