package therapy

type Modality string

const (
	ModalityCBT                  Modality = "cbt"
	ModalityHumanistic           Modality = "humanistic"
	ModalityMindfulness          Modality = "mindfulness"
	ModalityPsychodynamic        Modality = "psychodynamic"
	ModalityExistential          Modality = "existential"
	ModalitySomatic              Modality = "somatic"
	ModalitySolutionFocused      Modality = "solution_focused"
	ModalityDialecticalBehavior  Modality = "dialectical_behavioral"
	ModalityNarrative            Modality = "narrative"
	ModalityAcceptanceCommitment Modality = "acceptance_commitment"
)

// DefaultModality is the fixed fallback for ties, empty histories, and
// unknown modality names.
const DefaultModality = ModalityHumanistic

// modalityOrder fixes iteration order so inference is deterministic.
var modalityOrder = []Modality{
	ModalityCBT,
	ModalityHumanistic,
	ModalityMindfulness,
	ModalityPsychodynamic,
	ModalityExistential,
	ModalitySomatic,
	ModalitySolutionFocused,
	ModalityDialecticalBehavior,
	ModalityNarrative,
	ModalityAcceptanceCommitment,
}

// CommunicationStyle dials run 1-10 each.
type CommunicationStyle struct {
	Directness int
	Warmth     int
	Structure  int
	Pace       int
}

// ModalityConfig is the static per-modality table: loaded once, never
// mutated.
type ModalityConfig struct {
	Description string
	Instruction string
	Techniques  []string
	Exercises   []string
	Style       CommunicationStyle
}

var modalityConfigs = map[Modality]ModalityConfig{
	ModalityCBT: {
		Description: "Cognitive behavioral therapy: thoughts, evidence, and behavior change.",
		Instruction: "Respond in a CBT style. Help the person notice automatic thoughts, examine the evidence for and against them, and connect thoughts to feelings and behaviors. Offer concrete, structured steps.",
		Techniques:  []string{"cognitive restructuring", "behavioral activation", "thought records", "evidence examination"},
		Exercises:   []string{"Keep a thought record for one recurring worry", "Schedule one small valued activity this week", "Write the evidence for and against one belief"},
		Style:       CommunicationStyle{Directness: 8, Warmth: 6, Structure: 9, Pace: 7},
	},
	ModalityHumanistic: {
		Description: "Humanistic therapy: unconditional positive regard and personal growth.",
		Instruction: "Respond in a humanistic style. Center the person's own experience, reflect feelings without judgment, and trust their capacity for growth. Avoid prescribing; accompany.",
		Techniques:  []string{"reflective listening", "unconditional positive regard", "empathic mirroring"},
		Exercises:   []string{"Write a letter to yourself from a compassionate friend", "Name three moments this week you felt most yourself"},
		Style:       CommunicationStyle{Directness: 4, Warmth: 9, Structure: 3, Pace: 5},
	},
	ModalityMindfulness: {
		Description: "Mindfulness-based support: present-moment awareness without judgment.",
		Instruction: "Respond in a mindfulness-based style. Invite attention to the present moment, the breath, and bodily sensation. Hold whatever arises without judgment and without rushing to change it.",
		Techniques:  []string{"breath awareness", "body scan", "non-judgmental noting"},
		Exercises:   []string{"Three minutes of breath counting", "A slow body scan before sleep", "Note three sensations present right now"},
		Style:       CommunicationStyle{Directness: 5, Warmth: 7, Structure: 5, Pace: 3},
	},
	ModalityPsychodynamic: {
		Description: "Psychodynamic therapy: patterns rooted in early relationships.",
		Instruction: "Respond in a psychodynamic style. Notice recurring relational patterns, link present feelings to earlier experience where the person offers it, and stay curious about what is beneath the surface.",
		Techniques:  []string{"pattern interpretation", "exploring origins", "working with defenses"},
		Exercises:   []string{"Journal about when this feeling first appeared in your life", "Notice who in your past the current situation echoes"},
		Style:       CommunicationStyle{Directness: 6, Warmth: 7, Structure: 6, Pace: 4},
	},
	ModalityExistential: {
		Description: "Existential therapy: meaning, freedom, and responsibility.",
		Instruction: "Respond in an existential style. Take questions of meaning, mortality, freedom, and isolation seriously. Help the person author their own answers rather than supplying ready-made ones.",
		Techniques:  []string{"meaning exploration", "confronting givens", "values clarification"},
		Exercises:   []string{"Write what you would want your life to stand for", "Name one choice you have been treating as a necessity"},
		Style:       CommunicationStyle{Directness: 7, Warmth: 6, Structure: 4, Pace: 5},
	},
	ModalitySomatic: {
		Description: "Somatic therapy: the body as the entry point to emotion.",
		Instruction: "Respond in a somatic style. Ask where feelings live in the body, invite grounding through the senses, and keep the pace slow enough for the nervous system to settle.",
		Techniques:  []string{"grounding", "pendulation", "felt-sense tracking"},
		Exercises:   []string{"Feel both feet on the floor for one minute", "Track one sensation as it changes for five breaths"},
		Style:       CommunicationStyle{Directness: 5, Warmth: 8, Structure: 5, Pace: 2},
	},
	ModalitySolutionFocused: {
		Description: "Solution-focused brief therapy: what already works, amplified.",
		Instruction: "Respond in a solution-focused style. Look for exceptions to the problem, ask what is already working, and build small, concrete next steps toward the person's own picture of better.",
		Techniques:  []string{"miracle question", "exception finding", "scaling questions"},
		Exercises:   []string{"Describe one recent day the problem was smaller and what was different", "Rate this week 1-10 and name what would make it one point higher"},
		Style:       CommunicationStyle{Directness: 7, Warmth: 7, Structure: 7, Pace: 8},
	},
	ModalityDialecticalBehavior: {
		Description: "Dialectical behavior therapy: acceptance and change together.",
		Instruction: "Respond in a DBT-informed style. Balance validation of how hard things are with skills for change. Name the dialectic when both sides of a tension are true.",
		Techniques:  []string{"distress tolerance", "emotion regulation", "wise mind", "radical acceptance"},
		Exercises:   []string{"Practice one TIPP skill when distress rises", "Write one 'both things are true' statement about your situation"},
		Style:       CommunicationStyle{Directness: 6, Warmth: 7, Structure: 8, Pace: 6},
	},
	ModalityNarrative: {
		Description: "Narrative therapy: the person is not the problem.",
		Instruction: "Respond in a narrative style. Externalize the problem, ask about moments the person resisted its influence, and help them re-author the story they carry about themselves.",
		Techniques:  []string{"externalization", "unique outcomes", "re-authoring"},
		Exercises:   []string{"Give the problem a name and describe its tactics", "Write about one time you did not let it win"},
		Style:       CommunicationStyle{Directness: 5, Warmth: 8, Structure: 5, Pace: 4},
	},
	ModalityAcceptanceCommitment: {
		Description: "Acceptance and commitment therapy: values-guided flexible action.",
		Instruction: "Respond in an ACT style. Make room for difficult inner experience rather than fighting it, unhook from sticky thoughts, and steer toward action aligned with the person's values.",
		Techniques:  []string{"defusion", "acceptance", "values work", "committed action"},
		Exercises:   []string{"Say a sticky thought as 'I'm having the thought that...'", "Pick one tiny action today that serves a value you named"},
		Style:       CommunicationStyle{Directness: 6, Warmth: 7, Structure: 6, Pace: 5},
	},
}

// ConfigFor returns the static configuration for a modality, defaulting to
// humanistic for unknown names so lookups never fail.
func ConfigFor(m Modality) ModalityConfig {
	if cfg, ok := modalityConfigs[m]; ok {
		return cfg
	}
	return modalityConfigs[DefaultModality]
}

// StyleFor returns the fixed communication-style tuple for a modality.
func StyleFor(m Modality) CommunicationStyle {
	return ConfigFor(m).Style
}
