package therapy

import (
	"context"
	"fmt"
	"strings"
)

type FocusArea string

const (
	FocusTherapeuticApproach FocusArea = "therapeutic_approach"
	FocusVulnerability       FocusArea = "vulnerability"
	FocusChangeBeliefs       FocusArea = "change_beliefs"
	FocusSelfEfficacy        FocusArea = "self_efficacy"
	FocusMeaningMaking       FocusArea = "meaning_making"
)

type SessionState string

const (
	SessionPosed    SessionState = "posed"
	SessionAnswered SessionState = "answered"
	SessionAnalyzed SessionState = "analyzed"
)

// DialecticSession is one guided question/answer exchange. There is no
// terminal state: posing a question for another focus area starts a fresh
// session.
type DialecticSession struct {
	FocusArea  FocusArea
	Question   string
	Answer     string
	Beliefs    []string
	Insights   []string
	FollowUp   string
	Reflection string
	State      SessionState
}

var dialecticQuestions = map[FocusArea]string{
	FocusTherapeuticApproach: "When something is weighing on you, what tends to help more: thinking it through step by step, or having space to feel it out loud?",
	FocusVulnerability:       "What is it like for you to open up about the things that matter most?",
	FocusChangeBeliefs:       "When you think about things getting better, do you picture slow steady progress or a moment where everything shifts?",
	FocusSelfEfficacy:        "When life gets hard, how much do you trust your own ability to handle it?",
	FocusMeaningMaking:       "What gives your days a sense of meaning right now, even a small one?",
}

// beliefRule maps indicator keywords in an answer to a belief tag and an
// insight, independently per focus area.
type beliefRule struct {
	keywords []string
	belief   string
	insight  string
}

var dialecticRules = map[FocusArea][]beliefRule{
	FocusTherapeuticApproach: {
		{
			keywords: []string{"think", "logic", "plan", "step"},
			belief:   "Prefers structured, practical approaches",
			insight:  "Structured, skills-forward work is likely to land well",
		},
		{
			keywords: []string{"feel", "felt", "emotion", "heard"},
			belief:   "Leads with feelings over analysis",
			insight:  "Space for emotional expression should come before problem-solving",
		},
	},
	FocusVulnerability: {
		{
			keywords: []string{"difficult", "hard", "scary"},
			belief:   "Vulnerability is challenging",
			insight:  "Gradual trust-building will support deeper work",
		},
		{
			keywords: []string{"natural", "easy", "comfortable"},
			belief:   "High vulnerability comfort",
			insight:  "Ready for deeper work",
		},
	},
	FocusChangeBeliefs: {
		{
			keywords: []string{"slow", "gradual", "steady", "time"},
			belief:   "Believes change is gradual",
			insight:  "Frame progress as small accumulating steps",
		},
		{
			keywords: []string{"sudden", "moment", "shift", "breakthrough"},
			belief:   "Expects breakthrough change",
			insight:  "Watch for discouragement when progress feels slow",
		},
	},
	FocusSelfEfficacy: {
		{
			keywords: []string{"can't", "cant", "helpless", "unable"},
			belief:   "Low confidence in own agency",
			insight:  "Highlight past moments of competence early and often",
		},
		{
			keywords: []string{"can ", "able", "capable", "confident"},
			belief:   "Strong sense of agency",
			insight:  "Collaborative goal-setting will be well received",
		},
	},
	FocusMeaningMaking: {
		{
			keywords: []string{"nothing", "pointless", "empty", "lost"},
			belief:   "Struggling to find meaning",
			insight:  "Meaning-centered exploration deserves priority",
		},
		{
			keywords: []string{"family", "work", "faith", "values", "matters"},
			belief:   "Anchored by identified values",
			insight:  "Existing values can anchor committed action",
		},
	},
}

const (
	fallbackFollowUp   = "Thank you for sitting with that question. What stood out to you most as you answered it?"
	fallbackReflection = "Take a moment to notice how answering felt in your body, without judging it."
)

// DialecticManager runs guided-question sessions. The generator produces the
// follow-up and reflection; the optional belief store receives raw answers.
type DialecticManager struct {
	generator Generator
	beliefs   BeliefStore
}

// NewDialecticManager accepts a nil belief store; the generator may also be
// nil, in which case fixed fallback text is used for every follow-up.
func NewDialecticManager(generator Generator, beliefs BeliefStore) *DialecticManager {
	return &DialecticManager{generator: generator, beliefs: beliefs}
}

// Pose starts (or reopens) a session with the fixed question for the focus
// area.
func (m *DialecticManager) Pose(area FocusArea) (*DialecticSession, error) {
	question, ok := dialecticQuestions[area]
	if !ok {
		return nil, fmt.Errorf("unknown focus area %q", area)
	}
	return &DialecticSession{
		FocusArea: area,
		Question:  question,
		State:     SessionPosed,
	}, nil
}

// RecordAnswer stores the free-text answer and forwards it to the belief
// store when one is configured. Belief-store failures are swallowed.
func (m *DialecticManager) RecordAnswer(ctx context.Context, session *DialecticSession, userID, answer string) error {
	if session == nil {
		return fmt.Errorf("session is nil")
	}
	if session.State != SessionPosed {
		return fmt.Errorf("cannot answer a session in state %q", session.State)
	}
	session.Answer = answer
	session.State = SessionAnswered

	if m.beliefs != nil && userID != "" {
		if err := m.beliefs.SubmitStatement(ctx, userID, answer); err != nil {
			// optional collaborator; analysis proceeds locally
			return nil
		}
	}
	return nil
}

// Analyze runs the per-focus-area keyword rules over the answer and
// generates a follow-up message and reflection prompt, falling back to fixed
// text when generation fails.
func (m *DialecticManager) Analyze(ctx context.Context, session *DialecticSession) (DialecticTurnResult, error) {
	if session == nil {
		return DialecticTurnResult{}, fmt.Errorf("session is nil")
	}
	if session.State != SessionAnswered {
		return DialecticTurnResult{}, fmt.Errorf("cannot analyze a session in state %q", session.State)
	}

	normalized := normalizeText(session.Answer)
	beliefs := make([]string, 0, 2)
	insights := make([]string, 0, 2)
	for _, rule := range dialecticRules[session.FocusArea] {
		if containsAnyKeyword(normalized, rule.keywords) {
			beliefs = append(beliefs, rule.belief)
			insights = append(insights, rule.insight)
		}
	}

	followUp, reflection := m.generateFollowUp(ctx, session, beliefs)

	session.Beliefs = beliefs
	session.Insights = insights
	session.FollowUp = followUp
	session.Reflection = reflection
	session.State = SessionAnalyzed

	return DialecticTurnResult{
		FollowUp:   followUp,
		Reflection: reflection,
		Beliefs:    beliefs,
		Insights:   insights,
	}, nil
}

func (m *DialecticManager) generateFollowUp(ctx context.Context, session *DialecticSession, beliefs []string) (string, string) {
	if m.generator == nil {
		return fallbackFollowUp, fallbackReflection
	}

	instructions := strings.Join([]string{
		"You are guiding a gentle self-reflection exercise.",
		"The person was asked: " + session.Question,
		"Surfaced beliefs: " + strings.Join(beliefs, "; "),
		"Reply with exactly two lines. Line 1: a warm follow-up message responding to their answer. Line 2: a short reflection prompt they can sit with. No preamble, no numbering.",
	}, "\n")

	text, err := m.generator.Generate(ctx, instructions, []Message{
		{Role: RoleUser, Content: session.Answer},
	})
	if err != nil {
		return fallbackFollowUp, fallbackReflection
	}

	lines := splitNonEmptyLines(text)
	if len(lines) == 0 {
		return fallbackFollowUp, fallbackReflection
	}
	if len(lines) == 1 {
		return lines[0], fallbackReflection
	}
	return lines[0], lines[1]
}

func splitNonEmptyLines(text string) []string {
	parts := strings.Split(text, "\n")
	result := make([]string, 0, len(parts))
	for _, item := range parts {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
