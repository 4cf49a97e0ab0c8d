package therapy

import (
	"math/rand"
	"strings"
	"testing"
)

func seededRouter() *Router {
	return NewRouter(rand.New(rand.NewSource(42)))
}

func TestBuildInstructionsDirectiveClauses(t *testing.T) {
	t.Parallel()

	router := seededRouter()

	humanistic := PreferenceProfile{PrimaryModality: ModalityHumanistic, Style: StyleFor(ModalityHumanistic), VulnerabilityComfort: 5}
	req := router.BuildInstructions(humanistic, nil, "hello", false)
	if !strings.Contains(req.SystemInstructions, "non-directively") {
		t.Fatalf("directness 4 must add the non-directive clause: %s", req.SystemInstructions)
	}
	if !strings.Contains(req.SystemInstructions, "explicit warmth") {
		t.Fatalf("warmth 9 must add the high-warmth clause: %s", req.SystemInstructions)
	}
	if strings.Contains(req.SystemInstructions, "Be direct") {
		t.Fatalf("directness 4 must not add the direct clause")
	}

	cbt := PreferenceProfile{PrimaryModality: ModalityCBT, Style: StyleFor(ModalityCBT), VulnerabilityComfort: 5}
	req = router.BuildInstructions(cbt, nil, "hello", false)
	if !strings.Contains(req.SystemInstructions, "Be direct") {
		t.Fatalf("directness 8 must add the direct clause: %s", req.SystemInstructions)
	}
	if strings.Contains(req.SystemInstructions, "contemplative pace") {
		t.Fatalf("pace 7 must not add the contemplative clause")
	}

	somatic := PreferenceProfile{PrimaryModality: ModalitySomatic, Style: StyleFor(ModalitySomatic), VulnerabilityComfort: 5}
	req = router.BuildInstructions(somatic, nil, "hello", false)
	if !strings.Contains(req.SystemInstructions, "contemplative pace") {
		t.Fatalf("pace 2 must add the contemplative clause: %s", req.SystemInstructions)
	}
}

func TestBuildInstructionsSafetyClause(t *testing.T) {
	t.Parallel()

	router := seededRouter()
	profile := PreferenceProfile{PrimaryModality: ModalityCBT, Style: StyleFor(ModalityCBT), VulnerabilityComfort: 5}

	plain := router.BuildInstructions(profile, nil, "hello", false)
	if strings.Contains(plain.SystemInstructions, "support lines exist") {
		t.Fatalf("safety clause must be absent without indicators")
	}

	flagged := router.BuildInstructions(profile, nil, "hello", true)
	if !strings.Contains(flagged.SystemInstructions, "support lines exist") {
		t.Fatalf("crisis indicators must force the safety clause")
	}

	vulnerable := profile
	vulnerable.VulnerabilityComfort = 7
	high := router.BuildInstructions(vulnerable, nil, "hello", false)
	if !strings.Contains(high.SystemInstructions, "support lines exist") {
		t.Fatalf("vulnerability >= 7 must force the safety clause")
	}
}

func TestBuildInstructionsCapsHistoryAtTen(t *testing.T) {
	t.Parallel()

	router := seededRouter()
	profile := PreferenceProfile{PrimaryModality: ModalityCBT, Style: StyleFor(ModalityCBT)}

	history := make([]Message, 0, 25)
	for i := 0; i < 25; i++ {
		history = append(history, userMsg("turn"))
	}
	req := router.BuildInstructions(profile, history, "newest", false)

	if len(req.Messages) != historyWindow+1 {
		t.Fatalf("expected %d messages (window + new), got %d", historyWindow+1, len(req.Messages))
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != RoleUser || last.Content != "newest" {
		t.Fatalf("new user message must be last, got %+v", last)
	}
}

func TestAdaptSoftensDirectPhrasings(t *testing.T) {
	t.Parallel()

	router := seededRouter()
	style := CommunicationStyle{Directness: 3, Warmth: 5}

	got := router.Adapt("You should rest. You need to slow down.", style)
	if strings.Contains(got, "You should") || strings.Contains(got, "You need to") {
		t.Fatalf("direct phrasings must be softened: %s", got)
	}
	if !strings.Contains(got, "You might consider") {
		t.Fatalf("expected softened phrasing, got: %s", got)
	}
}

func TestAdaptHardensSoftPhrasings(t *testing.T) {
	t.Parallel()

	router := seededRouter()
	style := CommunicationStyle{Directness: 8, Warmth: 5}

	got := router.Adapt("You might consider resting more.", style)
	if !strings.Contains(got, "You should resting more.") {
		t.Fatalf("expected inverse lexical mapping, got: %s", got)
	}
}

func TestAdaptInsertsWarmPhraseAfterFirstSentence(t *testing.T) {
	t.Parallel()

	router := seededRouter()
	style := CommunicationStyle{Directness: 5, Warmth: 9}
	text := "That sounds heavy. Let's take it one piece at a time."

	got := router.Adapt(text, style)
	if got == text {
		t.Fatalf("warmth 9 should insert a phrase")
	}

	inserted := false
	for _, phrase := range warmPhrases {
		idx := strings.Index(got, phrase)
		if idx < 0 {
			continue
		}
		inserted = true
		if idx < len("That sounds heavy.") {
			t.Fatalf("phrase must come after the first sentence: %s", got)
		}
	}
	if !inserted {
		t.Fatalf("no warm phrase found in: %s", got)
	}
}

func TestAdaptWarmInsertionIsReproducibleWithSeed(t *testing.T) {
	t.Parallel()

	style := CommunicationStyle{Directness: 5, Warmth: 9}
	text := "That sounds heavy. Let's take it slowly."

	first := NewRouter(rand.New(rand.NewSource(7))).Adapt(text, style)
	second := NewRouter(rand.New(rand.NewSource(7))).Adapt(text, style)
	if first != second {
		t.Fatalf("same seed must produce the same adaptation:\n%s\n%s", first, second)
	}
}

func TestAdaptSkipsWarmPhraseWhenMarkerPresent(t *testing.T) {
	t.Parallel()

	router := seededRouter()
	style := CommunicationStyle{Directness: 5, Warmth: 9}
	text := "I hear how much you're carrying right now. Let's slow down."

	if got := router.Adapt(text, style); got != text {
		t.Fatalf("existing warm marker must suppress insertion: %s", got)
	}
}

func TestAdaptWithoutSentenceBoundaryAppendsPhrase(t *testing.T) {
	t.Parallel()

	router := seededRouter()
	style := CommunicationStyle{Directness: 5, Warmth: 9}

	got := router.Adapt("Stay with it", style)
	if !strings.HasPrefix(got, "Stay with it ") {
		t.Fatalf("expected phrase appended after text, got: %s", got)
	}
}

func TestFallbackTextKeyedByModality(t *testing.T) {
	t.Parallel()

	if FallbackText(ModalityCBT) == FallbackText(ModalityMindfulness) {
		t.Fatalf("modalities with dedicated fallbacks must differ")
	}
	if FallbackText(ModalityNarrative) != FallbackText(ModalityHumanistic) {
		t.Fatalf("modalities without a dedicated entry must use the humanistic fallback")
	}
	if strings.TrimSpace(FallbackText(Modality("unknown"))) == "" {
		t.Fatalf("fallback must never be empty")
	}
}
