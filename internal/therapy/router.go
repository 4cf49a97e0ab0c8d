package therapy

import (
	"math/rand"
	"strings"
	"time"
)

// GenerationRequest is the assembled prompt handed to the generation
// collaborator: instructions plus the trailing window of conversation.
type GenerationRequest struct {
	SystemInstructions string
	Messages           []Message
}

const (
	historyWindow = 10

	nonDirectiveCeiling  = 4
	directiveFloor       = 7
	highWarmthFloor      = 9
	contemplativeCeiling = 3

	safetyVulnerabilityFloor = 7
)

// phrasePair is an ordered rewrite so adaptation is deterministic for a
// given direction.
type phrasePair struct {
	direct string
	soft   string
}

var phrasePairs = []phrasePair{
	{direct: "You should", soft: "You might consider"},
	{direct: "You need to", soft: "It could help to"},
	{direct: "You must", soft: "One option is to"},
	{direct: "You have to", soft: "It may be worth trying to"},
	{direct: "Do this", soft: "Perhaps try this"},
}

var warmPhrases = []string{
	"I'm really glad you shared that with me.",
	"Thank you for trusting me with this.",
	"I hear how much you're carrying right now.",
	"It takes courage to put that into words.",
}

// warmMarkers guard against doubling up when the generated text already
// carries explicit warmth.
var warmMarkers = []string{
	"glad you shared", "thank you for trusting", "i hear how", "i hear you",
	"takes courage", "i'm here with you",
}

const safetyClause = " If anything in the conversation suggests the person may be unsafe, gently acknowledge it, remind them that support lines exist, and encourage reaching out to someone they trust."

var fallbackTexts = map[Modality]string{
	ModalityCBT:             "I'm having trouble forming a full reply right now. While I regroup: is there one thought from today you could write down and look at the evidence for?",
	ModalityHumanistic:      "I'm having trouble responding right now, but I'm still here with you. Whatever you're feeling in this moment is okay to feel.",
	ModalityMindfulness:     "I can't form a full reply right now. Perhaps take one slow breath with me, noticing the air move in and out, and we can continue shortly.",
	ModalityPsychodynamic:   "I'm unable to respond fully right now. It may be worth sitting with what came up for you just now; we can explore it together shortly.",
	ModalitySolutionFocused: "I can't reply properly right now. In the meantime: what is one small thing that helped even a little the last time you felt this way?",
}

// Router turns a preference profile into generation instructions and adapts
// generated text to the profile's communication style. The random source is
// injected so warm-phrase selection is reproducible under test.
type Router struct {
	rng *rand.Rand
}

// NewRouter builds a router around the given random source; nil gets a
// time-seeded one.
func NewRouter(rng *rand.Rand) *Router {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Router{rng: rng}
}

// BuildInstructions assembles the generation request: the modality's base
// instruction fragment, directive clauses keyed by style thresholds, a
// mandatory safety clause when crisis indicators or high vulnerability are
// present, and the last ten history messages plus the new user message.
func (r *Router) BuildInstructions(profile PreferenceProfile, history []Message, userMessage string, crisisIndicators bool) GenerationRequest {
	cfg := ConfigFor(profile.PrimaryModality)
	style := profile.Style

	var b strings.Builder
	b.WriteString(cfg.Instruction)

	if style.Directness <= nonDirectiveCeiling {
		b.WriteString(" Phrase suggestions tentatively and non-directively; reflect rather than instruct.")
	}
	if style.Directness >= directiveFloor {
		b.WriteString(" Be direct: name what you observe plainly and offer specific, concrete suggestions.")
	}
	if style.Warmth >= highWarmthFloor {
		b.WriteString(" Lead with explicit warmth and validation before any exploration or suggestion.")
	}
	if style.Pace <= contemplativeCeiling {
		b.WriteString(" Keep a slow, contemplative pace; do not rush toward resolution.")
	}
	if crisisIndicators || profile.VulnerabilityComfort >= safetyVulnerabilityFloor {
		b.WriteString(safetyClause)
	}

	window := history
	if len(window) > historyWindow {
		window = window[len(window)-historyWindow:]
	}
	messages := make([]Message, 0, len(window)+1)
	messages = append(messages, window...)
	messages = append(messages, Message{Role: RoleUser, Content: userMessage, Timestamp: time.Now().UTC()})

	return GenerationRequest{
		SystemInstructions: b.String(),
		Messages:           messages,
	}
}

// Adapt post-processes generated text lexically, not semantically: phrasing
// rewrites for low/high directness and a single warm-phrase insertion for
// very high warmth.
func (r *Router) Adapt(text string, style CommunicationStyle) string {
	adapted := text
	if style.Directness <= nonDirectiveCeiling {
		for _, pair := range phrasePairs {
			adapted = strings.ReplaceAll(adapted, pair.direct, pair.soft)
		}
	}
	if style.Directness >= directiveFloor {
		for _, pair := range phrasePairs {
			adapted = strings.ReplaceAll(adapted, pair.soft, pair.direct)
		}
	}
	if style.Warmth >= highWarmthFloor {
		adapted = r.insertWarmPhrase(adapted)
	}
	return adapted
}

func (r *Router) insertWarmPhrase(text string) string {
	lowered := strings.ToLower(text)
	for _, marker := range warmMarkers {
		if strings.Contains(lowered, marker) {
			return text
		}
	}
	phrase := warmPhrases[r.rng.Intn(len(warmPhrases))]
	cut := firstSentenceEnd(text)
	if cut < 0 {
		return strings.TrimSpace(text) + " " + phrase
	}
	return text[:cut] + " " + phrase + text[cut:]
}

// firstSentenceEnd returns the index just past the first sentence
// terminator, or -1 when none is found.
func firstSentenceEnd(text string) int {
	best := -1
	for _, terminator := range []string{". ", "! ", "? "} {
		idx := strings.Index(text, terminator)
		if idx < 0 {
			continue
		}
		end := idx + 1
		if best < 0 || end < best {
			best = end
		}
	}
	return best
}

// FallbackText is the fixed reply used when the generation collaborator
// fails or times out. Modalities without a dedicated entry use the
// humanistic sentence.
func FallbackText(m Modality) string {
	if text, ok := fallbackTexts[m]; ok {
		return text
	}
	return fallbackTexts[ModalityHumanistic]
}
