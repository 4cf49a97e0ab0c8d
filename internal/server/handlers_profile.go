package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type communicationStyleBody struct {
	Directness int `json:"directness"`
	Warmth     int `json:"warmth"`
	Structure  int `json:"structure"`
	Pace       int `json:"pace"`
}

type preferenceProfileBody struct {
	PrimaryModality      string                 `json:"primary_modality"`
	SecondaryModality    string                 `json:"secondary_modality"`
	VulnerabilityComfort int                    `json:"vulnerability_comfort"`
	ChangeBeliefs        string                 `json:"change_beliefs"`
	Style                communicationStyleBody `json:"communication_style"`
	Confidence           float64                `json:"confidence"`
	Source               string                 `json:"source"`
}

type safetyPlanResponse struct {
	Modality string         `json:"modality"`
	Plan     safetyPlanBody `json:"plan"`
}

// getPreferences re-runs inference over recent history on every request;
// profiles are derived, not stored.
func (a *App) getPreferences(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	ctx := c.Request.Context()
	history := a.recentHistory(ctx, userID)
	profile := a.engine.Infer(ctx, history, userID)

	c.JSON(http.StatusOK, preferenceProfileBody{
		PrimaryModality:      string(profile.PrimaryModality),
		SecondaryModality:    string(profile.SecondaryModality),
		VulnerabilityComfort: profile.VulnerabilityComfort,
		ChangeBeliefs:        string(profile.ChangeBeliefs),
		Style: communicationStyleBody{
			Directness: profile.Style.Directness,
			Warmth:     profile.Style.Warmth,
			Structure:  profile.Style.Structure,
			Pace:       profile.Style.Pace,
		},
		Confidence: profile.Confidence,
		Source:     string(profile.Source),
	})
}

func (a *App) getSafetyPlan(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	ctx := c.Request.Context()
	history := a.recentHistory(ctx, userID)
	profile := a.engine.Infer(ctx, history, userID)
	plan := a.plans.PersonalizedPlan(profile.PrimaryModality)

	c.JSON(http.StatusOK, safetyPlanResponse{
		Modality: string(profile.PrimaryModality),
		Plan: safetyPlanBody{
			ImmediateSteps:   plan.ImmediateSteps,
			CopingStrategies: plan.CopingStrategies,
			SupportResources: plan.SupportResources,
		},
	})
}
