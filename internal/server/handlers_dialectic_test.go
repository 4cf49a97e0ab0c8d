package server

import (
	"errors"
	"net/http"
	"testing"
)

func TestPoseDialecticReturnsFixedQuestion(t *testing.T) {
	t.Parallel()

	harness := newTestApp(t)
	router := harness.app.Router()
	token := signToken(t, "user-1")

	rec := performRequest(t, router, http.MethodPost, "/api/v1/dialectic/pose", token, map[string]any{
		"focus_area": "vulnerability",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	body := decodeJSONMap(t, rec)
	if body["focus_area"] != "vulnerability" {
		t.Fatalf("unexpected focus area: %v", body["focus_area"])
	}
	question, _ := body["question"].(string)
	if question == "" {
		t.Fatalf("expected a question")
	}
	if body["state"] != "posed" {
		t.Fatalf("unexpected state: %v", body["state"])
	}
}

func TestPoseDialecticRejectsUnknownFocusArea(t *testing.T) {
	t.Parallel()

	harness := newTestApp(t)
	router := harness.app.Router()
	token := signToken(t, "user-1")

	rec := performRequest(t, router, http.MethodPost, "/api/v1/dialectic/pose", token, map[string]any{
		"focus_area": "astrology",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAnswerDialecticAnalyzesAnswer(t *testing.T) {
	t.Parallel()

	harness := newTestApp(t)
	harness.ai.reply = "Thank you for naming how hard that is.\nWhat might one small safe disclosure look like?"
	router := harness.app.Router()
	token := signToken(t, "user-1")

	rec := performRequest(t, router, http.MethodPost, "/api/v1/dialectic/answer", token, map[string]any{
		"focus_area": "vulnerability",
		"answer":     "It is really difficult and a bit scary for me",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	body := decodeJSONMap(t, rec)
	if body["state"] != "analyzed" {
		t.Fatalf("unexpected state: %v", body["state"])
	}
	if body["follow_up"] != "Thank you for naming how hard that is." {
		t.Fatalf("unexpected follow-up: %v", body["follow_up"])
	}
	if body["reflection"] != "What might one small safe disclosure look like?" {
		t.Fatalf("unexpected reflection: %v", body["reflection"])
	}

	beliefs, ok := body["beliefs"].([]any)
	if !ok || len(beliefs) != 1 || beliefs[0] != "Vulnerability is challenging" {
		t.Fatalf("unexpected beliefs: %v", body["beliefs"])
	}
	insights, ok := body["insights"].([]any)
	if !ok || len(insights) != 1 || insights[0] != "Gradual trust-building will support deeper work" {
		t.Fatalf("unexpected insights: %v", body["insights"])
	}
}

func TestAnswerDialecticGenerationFailureUsesFallbackText(t *testing.T) {
	t.Parallel()

	harness := newTestApp(t)
	harness.ai.err = errors.New("upstream down")
	router := harness.app.Router()
	token := signToken(t, "user-1")

	rec := performRequest(t, router, http.MethodPost, "/api/v1/dialectic/answer", token, map[string]any{
		"focus_area": "self_efficacy",
		"answer":     "I feel helpless most days",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	body := decodeJSONMap(t, rec)
	followUp, _ := body["follow_up"].(string)
	if followUp == "" {
		t.Fatalf("expected fallback follow-up text")
	}
	beliefs, ok := body["beliefs"].([]any)
	if !ok || len(beliefs) != 1 || beliefs[0] != "Low confidence in own agency" {
		t.Fatalf("analysis must proceed despite generation failure, got %v", body["beliefs"])
	}
}

func TestAnswerDialecticRequiresAnswer(t *testing.T) {
	t.Parallel()

	harness := newTestApp(t)
	router := harness.app.Router()
	token := signToken(t, "user-1")

	rec := performRequest(t, router, http.MethodPost, "/api/v1/dialectic/answer", token, map[string]any{
		"focus_area": "vulnerability",
		"answer":     "  ",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
