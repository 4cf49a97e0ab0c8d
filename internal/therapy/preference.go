package therapy

import (
	"context"
	"math"
)

type ChangeBelief string

const (
	ChangeGradual      ChangeBelief = "gradual"
	ChangeBreakthrough ChangeBelief = "breakthrough"
)

type ProfileSource string

const (
	SourceExternal ProfileSource = "external"
	SourceLocal    ProfileSource = "local"
)

// PreferenceProfile captures how a person prefers to be met: which
// therapeutic modality fits them, how comfortable they are with emotional
// openness, and how they believe change happens.
type PreferenceProfile struct {
	PrimaryModality      Modality
	SecondaryModality    Modality
	VulnerabilityComfort int
	ChangeBeliefs        ChangeBelief
	Style                CommunicationStyle
	Confidence           float64
	Source               ProfileSource
}

const (
	highConfidence      = 0.8
	lowConfidence       = 0.6
	highConfidenceFloor = 5

	vulnerabilityBase      = 5.0
	vulnerabilityIncrement = 0.5
	vulnerabilityCeiling   = 10.0

	beliefStatementLimit = 5
)

var modalityKeywords = map[Modality][]string{
	ModalityCBT: {
		"thought", "evidence", "behavior", "goal", "solution", "practical",
		"pattern", "reframe", "logic",
	},
	ModalityHumanistic: {
		"feel", "growth", "authentic", "acceptance", "understood", "genuine",
		"self-worth",
	},
	ModalityMindfulness: {
		"present", "aware", "breath", "non-judgment", "meditation", "grounded",
		"observe",
	},
	ModalityPsychodynamic: {
		"childhood", "past", "unconscious", "relationship pattern", "parents",
		"repeating", "defense",
	},
	ModalityExistential: {
		"meaning", "purpose", "mortality", "freedom", "authenticity",
		"responsibility", "existence",
	},
	ModalitySomatic: {
		"body", "tension", "sensation", "nervous system", "breathwork",
		"physical", "tight chest",
	},
	ModalitySolutionFocused: {
		"what works", "next step", "quick win", "exception", "scale",
		"fix", "progress",
	},
	ModalityDialecticalBehavior: {
		"overwhelming emotion", "crisis skill", "distress", "regulate",
		"both true", "intense", "validation",
	},
	ModalityNarrative: {
		"story", "chapter", "identity", "rewrite", "label", "narrative",
		"the problem is",
	},
	ModalityAcceptanceCommitment: {
		"values", "willing", "let go", "committed", "workable", "accept",
		"flexibility",
	},
}

var vulnerabilityKeywords = []string{
	"scared to say", "hard to admit", "never told anyone", "ashamed",
	"vulnerable", "open up", "trust you", "honest about", "embarrassed",
	"afraid to share",
}

var gradualChangeKeywords = []string{
	"step by step", "gradually", "slowly", "small steps", "over time",
	"little by little", "one day at a time", "bit by bit",
}

var breakthroughChangeKeywords = []string{
	"breakthrough", "all at once", "epiphany", "sudden change", "overnight",
	"transform", "right away", "snap out",
}

// InferenceEngine derives a PreferenceProfile from conversation history.
// When a belief store is configured it is authoritative; any belief-store
// failure silently falls back to local keyword inference.
type InferenceEngine struct {
	beliefs BeliefStore
}

// NewInferenceEngine accepts a nil store, which disables the external path.
func NewInferenceEngine(beliefs BeliefStore) *InferenceEngine {
	return &InferenceEngine{beliefs: beliefs}
}

// Infer recomputes the profile on demand. It never returns an error: the
// external path degrades to the deterministic local scorer.
func (e *InferenceEngine) Infer(ctx context.Context, history []Message, userID string) PreferenceProfile {
	if profile, ok := e.inferExternal(ctx, history, userID); ok {
		return profile
	}
	return e.inferLocal(history)
}

func (e *InferenceEngine) inferExternal(ctx context.Context, history []Message, userID string) (PreferenceProfile, bool) {
	if e.beliefs == nil || userID == "" {
		return PreferenceProfile{}, false
	}
	if err := e.beliefs.EnsureSelfModel(ctx, userID); err != nil {
		return PreferenceProfile{}, false
	}
	for _, msg := range lastUserMessages(history, beliefStatementLimit) {
		if err := e.beliefs.SubmitStatement(ctx, userID, msg.Content); err != nil {
			return PreferenceProfile{}, false
		}
	}
	profile, err := e.beliefs.AggregatedPreferences(ctx, userID)
	if err != nil || profile == nil {
		return PreferenceProfile{}, false
	}
	result := *profile
	result.Source = SourceExternal
	if result.PrimaryModality == "" {
		result.PrimaryModality = DefaultModality
	}
	if result.Style == (CommunicationStyle{}) {
		result.Style = StyleFor(result.PrimaryModality)
	}
	return result, true
}

func (e *InferenceEngine) inferLocal(history []Message) PreferenceProfile {
	counters := make(map[Modality]int, len(modalityOrder))
	vulnerability := vulnerabilityBase
	gradualHits := 0
	breakthroughHits := 0

	for _, msg := range history {
		if msg.Role != RoleUser {
			continue
		}
		normalized := normalizeText(msg.Content)
		if normalized == "" {
			continue
		}
		for _, modality := range modalityOrder {
			counters[modality] += countKeywordHits(normalized, modalityKeywords[modality])
		}
		if containsAnyKeyword(normalized, vulnerabilityKeywords) {
			vulnerability = math.Min(vulnerability+vulnerabilityIncrement, vulnerabilityCeiling)
		}
		gradualHits += countKeywordHits(normalized, gradualChangeKeywords)
		breakthroughHits += countKeywordHits(normalized, breakthroughChangeKeywords)
	}

	primary, maxHits := dominantModality(counters)
	secondary := secondaryModality(counters, primary)

	confidence := lowConfidence
	if maxHits > highConfidenceFloor {
		confidence = highConfidence
	}

	change := ChangeGradual
	if breakthroughHits > gradualHits {
		change = ChangeBreakthrough
	}

	return PreferenceProfile{
		PrimaryModality:      primary,
		SecondaryModality:    secondary,
		VulnerabilityComfort: int(math.Round(vulnerability)),
		ChangeBeliefs:        change,
		Style:                StyleFor(primary),
		Confidence:           confidence,
		Source:               SourceLocal,
	}
}

// dominantModality returns the single category with the strictly largest
// counter. Ties and the all-zero case resolve to the fixed humanistic
// default rather than map iteration order.
func dominantModality(counters map[Modality]int) (Modality, int) {
	best := DefaultModality
	maxHits := 0
	tied := false
	for _, modality := range modalityOrder {
		hits := counters[modality]
		if hits > maxHits {
			best = modality
			maxHits = hits
			tied = false
		} else if hits == maxHits && hits > 0 {
			tied = true
		}
	}
	if maxHits == 0 || tied {
		return DefaultModality, maxHits
	}
	return best, maxHits
}

// secondaryModality picks the strongest remaining category in fixed order;
// with no signal it falls back to mindfulness as a complement to the
// humanistic default.
func secondaryModality(counters map[Modality]int, primary Modality) Modality {
	best := Modality("")
	maxHits := 0
	for _, modality := range modalityOrder {
		if modality == primary {
			continue
		}
		if counters[modality] > maxHits {
			best = modality
			maxHits = counters[modality]
		}
	}
	if best == "" {
		if primary == ModalityMindfulness {
			return DefaultModality
		}
		return ModalityMindfulness
	}
	return best
}
