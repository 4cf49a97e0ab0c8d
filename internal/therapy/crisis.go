package therapy

import (
	"fmt"
	"strings"
)

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Elevated reports whether the level must short-circuit modality routing.
func (l RiskLevel) Elevated() bool {
	return l == RiskHigh || l == RiskCritical
}

// CrisisAssessment is computed fresh per message and never stored by this
// package. RiskFactors holds one label per scoring contribution.
type CrisisAssessment struct {
	RiskScore   int
	RiskLevel   RiskLevel
	RiskFactors []string
}

const (
	highRiskKeywordWeight     = 10
	moderateRiskKeywordWeight = 5
	selfHarmKeywordWeight     = 7
	emotionalContribution     = 5

	criticalThreshold = 15
	highThreshold     = 10
	moderateThreshold = 5

	extremeIntensityFloor = 9
)

var highRiskKeywords = []string{
	"kill myself",
	"end my life",
	"suicide",
	"want to die",
	"better off dead",
	"no reason to live",
	"end it all",
}

var moderateRiskKeywords = []string{
	"hopeless",
	"can't go on",
	"cant go on",
	"worthless",
	"no point anymore",
	"give up on everything",
	"unbearable",
	"trapped",
}

var selfHarmKeywords = []string{
	"hurt myself",
	"harm myself",
	"cut myself",
	"self harm",
	"self-harm",
	"punish myself",
}

var highRiskEmotions = map[string]struct{}{
	"hopelessness": {},
	"despair":      {},
}

// CrisisAssessor scores a single message for crisis risk. It is stateless
// and total: no input combination makes Assess fail.
type CrisisAssessor struct{}

func NewCrisisAssessor() *CrisisAssessor {
	return &CrisisAssessor{}
}

// Assess runs the deterministic keyword scorer. Each keyword list is scanned
// once, so repeated occurrences of the same phrase count a single time while
// distinct matching keywords are additive. A missing emotional state
// contributes zero. recentIncidents is the number of high/critical incidents
// inside the caller's lookback window; any positive count adds to the score
// and promotes a borderline moderate result to high.
func (a *CrisisAssessor) Assess(message string, state *EmotionalState, recentIncidents int) CrisisAssessment {
	normalized := normalizeText(message)

	score := 0
	factors := make([]string, 0, 4)

	for _, keyword := range highRiskKeywords {
		if strings.Contains(normalized, keyword) {
			score += highRiskKeywordWeight
			factors = append(factors, "high_risk_keyword:"+keyword)
		}
	}
	for _, keyword := range moderateRiskKeywords {
		if strings.Contains(normalized, keyword) {
			score += moderateRiskKeywordWeight
			factors = append(factors, "moderate_risk_keyword:"+keyword)
		}
	}
	for _, keyword := range selfHarmKeywords {
		if strings.Contains(normalized, keyword) {
			score += selfHarmKeywordWeight
			factors = append(factors, "self_harm_reference:"+keyword)
		}
	}

	if state != nil {
		if state.Intensity >= extremeIntensityFloor {
			score += emotionalContribution
			factors = append(factors, "extreme_emotional_intensity")
		}
		emotion := normalizeText(state.PrimaryEmotion)
		if _, ok := highRiskEmotions[emotion]; ok {
			score += emotionalContribution
			factors = append(factors, fmt.Sprintf("high_risk_emotion:%s", emotion))
		}
	}

	hasRecentHistory := recentIncidents > 0
	if hasRecentHistory {
		score += emotionalContribution
		factors = append(factors, "recent_crisis_history")
	}

	level := levelForScore(score)
	if hasRecentHistory && level == RiskModerate {
		level = RiskHigh
	}

	return CrisisAssessment{
		RiskScore:   score,
		RiskLevel:   level,
		RiskFactors: factors,
	}
}

// ContainsCrisisKeywords is the coarse pre-filter used as a fast bypass
// signal while building generation instructions. Assess stays authoritative;
// this only answers "does the text mention crisis language at all".
func (a *CrisisAssessor) ContainsCrisisKeywords(text string) bool {
	normalized := normalizeText(text)
	return containsAnyKeyword(normalized, highRiskKeywords) ||
		containsAnyKeyword(normalized, selfHarmKeywords)
}

func levelForScore(score int) RiskLevel {
	switch {
	case score >= criticalThreshold:
		return RiskCritical
	case score >= highThreshold:
		return RiskHigh
	case score >= moderateThreshold:
		return RiskModerate
	default:
		return RiskLow
	}
}
