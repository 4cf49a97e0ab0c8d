package server

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"mindline/backend/internal/therapy"
)

type chatMessageRequest struct {
	Message        string `json:"message"`
	PrimaryEmotion string `json:"primary_emotion"`
	Intensity      int    `json:"intensity"`
}

type crisisResponseBody struct {
	Type             string         `json:"type"`
	Message          string         `json:"message"`
	Resources        []string       `json:"resources"`
	FollowUpRequired bool           `json:"follow_up_required"`
	RiskLevel        string         `json:"risk_level"`
	SafetyPlan       safetyPlanBody `json:"safety_plan"`
}

type safetyPlanBody struct {
	ImmediateSteps   []string `json:"immediate_steps"`
	CopingStrategies []string `json:"coping_strategies"`
	SupportResources []string `json:"support_resources"`
}

type therapeuticResponseBody struct {
	Type               string   `json:"type"`
	Content            string   `json:"content"`
	Modality           string   `json:"modality"`
	SuggestedExercises []string `json:"suggested_exercises"`
	ConversationDepth  int      `json:"conversation_depth"`
	Confidence         float64  `json:"confidence"`
	RiskLevel          string   `json:"risk_level"`
}

const historyFetchLimit = 10

// postChatMessage runs the full per-message pipeline. Ordering is the one
// hard sequencing guarantee: the crisis assessment always completes before
// any routing or generation.
func (a *App) postChatMessage(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var payload chatMessageRequest
	if !mustJSON(c, &payload) {
		return
	}
	message := strings.TrimSpace(payload.Message)
	if message == "" {
		writeError(c, http.StatusBadRequest, "message is required")
		return
	}

	ctx := c.Request.Context()

	state := emotionalStateFromRequest(payload)
	assessment := a.gateMessage(ctx, userID, message, state)

	// history is read before the new message is appended so the router does
	// not see the message twice
	history := a.recentHistory(ctx, userID)

	if err := a.messages.Append(ctx, userID, therapy.Message{
		Role:      therapy.RoleUser,
		Content:   message,
		Timestamp: time.Now().UTC(),
	}); err != nil {
		log.Printf("failed to persist user message user_id=%s err=%v", userID, err)
	}

	if assessment.RiskLevel.Elevated() {
		a.respondWithCrisisPlan(c, ctx, userID, history, assessment)
		return
	}

	response := a.routeAndGenerate(ctx, userID, message, history, assessment)

	if err := a.messages.Append(ctx, userID, therapy.Message{
		Role:      therapy.RoleAssistant,
		Content:   response.Content,
		Timestamp: time.Now().UTC(),
	}); err != nil {
		log.Printf("failed to persist assistant message user_id=%s err=%v", userID, err)
	}

	c.JSON(http.StatusOK, therapeuticResponseBody{
		Type:               "therapeutic",
		Content:            response.Content,
		Modality:           string(response.Modality),
		SuggestedExercises: response.SuggestedExercises,
		ConversationDepth:  response.ConversationDepth,
		Confidence:         response.Confidence,
		RiskLevel:          string(assessment.RiskLevel),
	})
}

// gateMessage computes the crisis assessment that gates everything else.
// Any internal failure fails toward the safe branch: a panic or incident
// lookup error never downgrades the result below what the message alone
// scores.
func (a *App) gateMessage(ctx context.Context, userID, message string, state *therapy.EmotionalState) therapy.CrisisAssessment {
	recentIncidents := 0
	window := time.Duration(a.cfg.CrisisLookbackHours) * time.Hour
	count, err := a.incidents.CountRecentHighRiskIncidents(ctx, userID, window)
	if err != nil {
		log.Printf("incident lookup failed, scoring without history user_id=%s err=%v", userID, err)
	} else {
		recentIncidents = count
	}

	assessment := a.assessWithFailSafe(message, state, recentIncidents)

	if assessment.RiskLevel.Elevated() {
		if err := a.incidents.Record(ctx, userID, assessment); err != nil {
			log.Printf("failed to record crisis incident user_id=%s level=%s err=%v", userID, assessment.RiskLevel, err)
		}
	}
	return assessment
}

// assessWithFailSafe resolves the fail-open question: if scoring itself
// panics, the user is treated as potentially critical rather than silently
// passed through to generation.
func (a *App) assessWithFailSafe(message string, state *therapy.EmotionalState, recentIncidents int) (assessment therapy.CrisisAssessment) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("crisis assessor panicked, failing safe: %v", r)
			assessment = therapy.CrisisAssessment{
				RiskScore:   0,
				RiskLevel:   therapy.RiskCritical,
				RiskFactors: []string{"assessor_failure"},
			}
		}
	}()
	return a.assessor.Assess(message, state, recentIncidents)
}

func (a *App) respondWithCrisisPlan(c *gin.Context, ctx context.Context, userID string, history []therapy.Message, assessment therapy.CrisisAssessment) {
	crisis := a.plans.CrisisResponse()

	// the plan is personalized by modality; no generation call happens on
	// this branch
	profile := a.engine.Infer(ctx, history, userID)
	plan := a.plans.PersonalizedPlan(profile.PrimaryModality)

	c.JSON(http.StatusOK, crisisResponseBody{
		Type:             "crisis",
		Message:          crisis.Message,
		Resources:        crisis.Resources,
		FollowUpRequired: crisis.FollowUpRequired,
		RiskLevel:        string(assessment.RiskLevel),
		SafetyPlan: safetyPlanBody{
			ImmediateSteps:   plan.ImmediateSteps,
			CopingStrategies: plan.CopingStrategies,
			SupportResources: plan.SupportResources,
		},
	})
}

func (a *App) routeAndGenerate(ctx context.Context, userID, message string, history []therapy.Message, assessment therapy.CrisisAssessment) therapy.TherapeuticResponse {
	profile := a.engine.Infer(ctx, history, userID)

	crisisIndicators := assessment.RiskLevel == therapy.RiskModerate ||
		a.assessor.ContainsCrisisKeywords(message)
	request := a.router.BuildInstructions(profile, history, message, crisisIndicators)

	content, err := a.generator.Generate(ctx, request.SystemInstructions, request.Messages)
	if err != nil {
		log.Printf("generation failed, using modality fallback user_id=%s modality=%s err=%v", userID, profile.PrimaryModality, err)
		content = therapy.FallbackText(profile.PrimaryModality)
	} else {
		content = a.router.Adapt(content, profile.Style)
	}

	return therapy.TherapeuticResponse{
		Content:            content,
		Modality:           profile.PrimaryModality,
		SuggestedExercises: therapy.ConfigFor(profile.PrimaryModality).Exercises,
		ConversationDepth:  conversationDepth(history),
		Confidence:         profile.Confidence,
	}
}

func (a *App) recentHistory(ctx context.Context, userID string) []therapy.Message {
	history, err := a.messages.Recent(ctx, userID, historyFetchLimit)
	if err != nil {
		log.Printf("history fetch failed, continuing with empty history user_id=%s err=%v", userID, err)
		return nil
	}
	return history
}

// conversationDepth counts user turns so far, including the one being
// processed.
func conversationDepth(history []therapy.Message) int {
	depth := 1
	for _, msg := range history {
		if msg.Role == therapy.RoleUser {
			depth++
		}
	}
	return depth
}

func emotionalStateFromRequest(payload chatMessageRequest) *therapy.EmotionalState {
	emotion := strings.TrimSpace(payload.PrimaryEmotion)
	if emotion == "" && payload.Intensity == 0 {
		return nil
	}
	return &therapy.EmotionalState{
		PrimaryEmotion: emotion,
		Intensity:      payload.Intensity,
	}
}
