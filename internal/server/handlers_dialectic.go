package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"mindline/backend/internal/therapy"
)

type poseDialecticRequest struct {
	FocusArea string `json:"focus_area"`
}

type poseDialecticResponse struct {
	FocusArea string `json:"focus_area"`
	Question  string `json:"question"`
	State     string `json:"state"`
}

type answerDialecticRequest struct {
	FocusArea string `json:"focus_area"`
	Answer    string `json:"answer"`
}

type answerDialecticResponse struct {
	FocusArea  string   `json:"focus_area"`
	FollowUp   string   `json:"follow_up"`
	Reflection string   `json:"reflection"`
	Beliefs    []string `json:"beliefs"`
	Insights   []string `json:"insights"`
	State      string   `json:"state"`
}

func (a *App) poseDialectic(c *gin.Context) {
	if _, ok := userIDFromContext(c); !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var payload poseDialecticRequest
	if !mustJSON(c, &payload) {
		return
	}

	session, err := a.dialectics.Pose(therapy.FocusArea(strings.TrimSpace(payload.FocusArea)))
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusOK, poseDialecticResponse{
		FocusArea: string(session.FocusArea),
		Question:  session.Question,
		State:     string(session.State),
	})
}

// answerDialectic runs a full exchange in one request: the question for the
// focus area is re-posed, the answer recorded, and the analysis returned.
// Sessions are not persisted between requests.
func (a *App) answerDialectic(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var payload answerDialecticRequest
	if !mustJSON(c, &payload) {
		return
	}
	answer := strings.TrimSpace(payload.Answer)
	if answer == "" {
		writeError(c, http.StatusBadRequest, "answer is required")
		return
	}

	ctx := c.Request.Context()

	session, err := a.dialectics.Pose(therapy.FocusArea(strings.TrimSpace(payload.FocusArea)))
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.dialectics.RecordAnswer(ctx, session, userID, answer); err != nil {
		writeError(c, http.StatusInternalServerError, "Failed to record answer")
		return
	}
	result, err := a.dialectics.Analyze(ctx, session)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "Failed to analyze answer")
		return
	}

	c.JSON(http.StatusOK, answerDialecticResponse{
		FocusArea:  string(session.FocusArea),
		FollowUp:   result.FollowUp,
		Reflection: result.Reflection,
		Beliefs:    result.Beliefs,
		Insights:   result.Insights,
		State:      string(session.State),
	})
}
