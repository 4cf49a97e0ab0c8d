// Package therapy holds the inference-and-routing engine: crisis risk
// scoring, therapeutic preference inference, modality routing, safety
// planning, and dialectic (guided-question) sessions.
//
// Every component is a constructed value operating only on its explicit
// inputs. Persistence, transport, and the language-generation service are
// collaborators injected through the interfaces below.
package therapy

import (
	"context"
	"errors"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one immutable turn of a conversation history.
type Message struct {
	Role      Role
	Content   string
	Timestamp time.Time
}

// EmotionalState is the caller-supplied emotional read for a single message.
// Intensity runs 1-10.
type EmotionalState struct {
	PrimaryEmotion string
	Intensity      int
}

var (
	// ErrGenerationUnavailable marks a failed or timed-out generation call.
	// It is always recovered locally with fixed fallback text.
	ErrGenerationUnavailable = errors.New("generation service unavailable")

	// ErrBeliefStoreUnavailable marks a failed belief-store call. Callers
	// fall through to local inference without surfacing it.
	ErrBeliefStoreUnavailable = errors.New("belief store unavailable")
)

// Generator is the external language-generation collaborator.
type Generator interface {
	Generate(ctx context.Context, systemInstructions string, messages []Message) (string, error)
}

// BeliefStore is the optional external preference-modeling collaborator.
// AggregatedPreferences returns (nil, nil) when no profile exists yet.
type BeliefStore interface {
	EnsureSelfModel(ctx context.Context, userID string) error
	SubmitStatement(ctx context.Context, userID, text string) error
	AggregatedPreferences(ctx context.Context, userID string) (*PreferenceProfile, error)
}

// IncidentHistory reports how many high/critical crisis incidents a user had
// inside the lookback window. Persistence of incidents lives with the caller.
type IncidentHistory interface {
	CountRecentHighRiskIncidents(ctx context.Context, userID string, window time.Duration) (int, error)
}

// TherapeuticResponse is the routed, adapted reply handed back to transport.
type TherapeuticResponse struct {
	Content            string
	Modality           Modality
	SuggestedExercises []string
	ConversationDepth  int
	Confidence         float64
}

// DialecticTurnResult is the outcome of analyzing one dialectic answer.
type DialecticTurnResult struct {
	FollowUp   string
	Reflection string
	Beliefs    []string
	Insights   []string
}

func lastUserMessages(history []Message, limit int) []Message {
	result := make([]Message, 0, limit)
	for idx := len(history) - 1; idx >= 0 && len(result) < limit; idx-- {
		if history[idx].Role != RoleUser {
			continue
		}
		result = append(result, history[idx])
	}
	// restore chronological order
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result
}
