package server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"mindline/backend/internal/therapy"
)

func seedUserMessages(t *testing.T, store *memMessageStore, userID string, contents ...string) {
	t.Helper()
	base := time.Now().UTC().Add(-time.Hour)
	for idx, content := range contents {
		err := store.Append(context.Background(), userID, therapy.Message{
			Role:      therapy.RoleUser,
			Content:   content,
			Timestamp: base.Add(time.Duration(idx) * time.Minute),
		})
		if err != nil {
			t.Fatalf("seed message: %v", err)
		}
	}
}

func TestGetPreferencesInfersFromHistory(t *testing.T) {
	t.Parallel()

	harness := newTestApp(t)
	seedUserMessages(t, harness.messages, "user-1",
		"I keep noticing the same thought pattern",
		"I want something practical, a concrete goal",
		"Can we look at the evidence for that thought?",
	)
	router := harness.app.Router()
	token := signToken(t, "user-1")

	rec := performRequest(t, router, http.MethodGet, "/api/v1/profile/preferences", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	body := decodeJSONMap(t, rec)
	if body["primary_modality"] != "cbt" {
		t.Fatalf("expected cbt primary modality, got %v", body["primary_modality"])
	}
	if body["source"] != "local" {
		t.Fatalf("expected local source, got %v", body["source"])
	}
	style, ok := body["communication_style"].(map[string]any)
	if !ok {
		t.Fatalf("expected communication_style object, got %v", body["communication_style"])
	}
	if directness, _ := style["directness"].(float64); directness == 0 {
		t.Fatalf("expected populated style, got %v", style)
	}
}

func TestGetPreferencesDefaultsOnEmptyHistory(t *testing.T) {
	t.Parallel()

	harness := newTestApp(t)
	router := harness.app.Router()
	token := signToken(t, "user-1")

	rec := performRequest(t, router, http.MethodGet, "/api/v1/profile/preferences", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	body := decodeJSONMap(t, rec)
	if body["primary_modality"] != "humanistic" {
		t.Fatalf("expected humanistic default, got %v", body["primary_modality"])
	}
	if confidence, _ := body["confidence"].(float64); confidence != 0.6 {
		t.Fatalf("expected low confidence on empty history, got %v", body["confidence"])
	}
	if comfort, _ := body["vulnerability_comfort"].(float64); comfort != 5 {
		t.Fatalf("expected baseline vulnerability comfort, got %v", body["vulnerability_comfort"])
	}
}

func TestGetSafetyPlanMatchesInferredModality(t *testing.T) {
	t.Parallel()

	harness := newTestApp(t)
	seedUserMessages(t, harness.messages, "user-1",
		"Staying present with my breath helps",
		"Meditation keeps me grounded and aware",
	)
	router := harness.app.Router()
	token := signToken(t, "user-1")

	rec := performRequest(t, router, http.MethodGet, "/api/v1/safety-plan", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	body := decodeJSONMap(t, rec)
	if body["modality"] != "mindfulness" {
		t.Fatalf("expected mindfulness modality, got %v", body["modality"])
	}
	plan, ok := body["plan"].(map[string]any)
	if !ok {
		t.Fatalf("expected plan object, got %v", body["plan"])
	}
	strategies, ok := plan["coping_strategies"].([]any)
	if !ok || len(strategies) == 0 {
		t.Fatalf("expected coping strategies, got %v", plan["coping_strategies"])
	}
	found := false
	for _, item := range strategies {
		if s, _ := item.(string); s == "5-4-3-2-1 grounding" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected grounding strategy for mindfulness, got %v", strategies)
	}
	resources, ok := plan["support_resources"].([]any)
	if !ok || len(resources) != 3 {
		t.Fatalf("expected 3 support resources, got %v", plan["support_resources"])
	}
}

func TestGetSafetyPlanRequiresAuth(t *testing.T) {
	t.Parallel()

	harness := newTestApp(t)
	router := harness.app.Router()

	rec := performRequest(t, router, http.MethodGet, "/api/v1/safety-plan", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
