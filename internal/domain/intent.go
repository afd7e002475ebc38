package domain

import "time"

// CognitiveGoal classifies what the user wants from the AI.
type CognitiveGoal string

const (
	GoalKnow  CognitiveGoal = "알기"
	GoalDo    CognitiveGoal = "하기"
	GoalMake  CognitiveGoal = "만들기"
	GoalLearn CognitiveGoal = "배우기"
)

// Specificity describes how concrete a request is.
type Specificity string

const (
	SpecificityLow    Specificity = "LOW"
	SpecificityMedium Specificity = "MEDIUM"
	SpecificityHigh   Specificity = "HIGH"
)

// Completeness describes whether a request carries enough information to answer well.
type Completeness string

const (
	CompletenessIncomplete Completeness = "INCOMPLETE"
	CompletenessPartial    Completeness = "PARTIAL"
	CompletenessComplete   Completeness = "COMPLETE"
)

// Defaults substituted for out-of-range values returned by a model.
const (
	DefaultCognitiveGoal = GoalKnow
	DefaultSpecificity   = SpecificityMedium
	DefaultCompleteness  = CompletenessPartial

	DefaultClarificationThreshold = 0.7
	HeuristicConfidence           = 0.3
)

// IntentSource records which stage produced an intent.
type IntentSource string

const (
	IntentSourceLLM       IntentSource = "llm"
	IntentSourceHeuristic IntentSource = "heuristic"
)

// IntentResult is the structured intent extracted from one user input.
// Values are immutable once created; use NewIntentResult to build one.
type IntentResult struct {
	CognitiveGoal   CognitiveGoal `json:"cognitive_goal"`
	Specificity     Specificity   `json:"specificity"`
	Completeness    Completeness  `json:"completeness"`
	PrimaryEntities []string      `json:"primary_entities"`
	Constraints     []string      `json:"constraints"`
	Confidence      float64       `json:"confidence"`
	Source          IntentSource  `json:"source,omitempty"`
}

// NewIntentResult normalizes enum members and clamps confidence into [0,1].
func NewIntentResult(goal CognitiveGoal, spec Specificity, comp Completeness, entities, constraints []string, confidence float64) IntentResult {
	if !goal.Valid() {
		goal = DefaultCognitiveGoal
	}
	if !spec.Valid() {
		spec = DefaultSpecificity
	}
	if !comp.Valid() {
		comp = DefaultCompleteness
	}
	if entities == nil {
		entities = []string{}
	}
	if constraints == nil {
		constraints = []string{}
	}
	return IntentResult{
		CognitiveGoal:   goal,
		Specificity:     spec,
		Completeness:    comp,
		PrimaryEntities: entities,
		Constraints:     constraints,
		Confidence:      ClampConfidence(confidence),
	}
}

// NeedsClarification reports whether confidence falls below threshold.
func (r IntentResult) NeedsClarification(threshold float64) bool {
	return r.Confidence < threshold
}

// Domain returns the first primary entity, or "" if none were extracted.
func (r IntentResult) Domain() string {
	if len(r.PrimaryEntities) == 0 {
		return ""
	}
	return r.PrimaryEntities[0]
}

// Valid reports membership in the closed goal set.
func (g CognitiveGoal) Valid() bool {
	switch g {
	case GoalKnow, GoalDo, GoalMake, GoalLearn:
		return true
	}
	return false
}

// Valid reports membership in the closed specificity set.
func (s Specificity) Valid() bool {
	switch s {
	case SpecificityLow, SpecificityMedium, SpecificityHigh:
		return true
	}
	return false
}

// Valid reports membership in the closed completeness set.
func (c Completeness) Valid() bool {
	switch c {
	case CompletenessIncomplete, CompletenessPartial, CompletenessComplete:
		return true
	}
	return false
}

// ClampConfidence bounds a confidence score to [0,1]. NaN maps to 0.
func ClampConfidence(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// IntentRecord is a persisted intent tied to a session.
type IntentRecord struct {
	ID        string
	SessionID string
	UserInput string
	Intent    IntentResult
	CreatedAt time.Time
}
