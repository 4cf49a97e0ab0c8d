package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mindline/backend/internal/config"
	"mindline/backend/internal/therapy"
)

// BeliefStoreClient talks to the optional external belief-modeling service.
// It is constructed explicitly and checked with Connect at startup; there is
// no background health probe mutating availability flags.
type BeliefStoreClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewBeliefStoreClient returns nil when no base URL is configured, which
// disables the external inference path entirely.
func NewBeliefStoreClient(cfg config.Config) *BeliefStoreClient {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BeliefStoreBaseURL), "/")
	if baseURL == "" {
		return nil
	}
	timeoutSeconds := cfg.BeliefStoreTimeoutSeconds
	if timeoutSeconds <= 0 {
		timeoutSeconds = 5
	}
	return &BeliefStoreClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutSeconds) * time.Second,
		},
	}
}

// Connect is an explicit readiness check. A failure here is a startup
// signal for the operator, not a fatal condition: inference falls back to
// the local scorer either way.
func (c *BeliefStoreClient) Connect(ctx context.Context) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("%w: %v", therapy.ErrBeliefStoreUnavailable, err)
	}
	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("%w: %v", therapy.ErrBeliefStoreUnavailable, err)
	}
	defer response.Body.Close()
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return fmt.Errorf("%w: health returned %d", therapy.ErrBeliefStoreUnavailable, response.StatusCode)
	}
	return nil
}

func (c *BeliefStoreClient) EnsureSelfModel(ctx context.Context, userID string) error {
	payload := map[string]string{"user_id": userID}
	status, _, err := c.do(ctx, http.MethodPost, "/self-models", payload)
	if err != nil {
		return err
	}
	// 409 means the self-model already exists, which satisfies "ensure"
	if status != http.StatusOK && status != http.StatusCreated && status != http.StatusConflict {
		return fmt.Errorf("%w: ensure self-model returned %d", therapy.ErrBeliefStoreUnavailable, status)
	}
	return nil
}

func (c *BeliefStoreClient) SubmitStatement(ctx context.Context, userID, text string) error {
	payload := map[string]string{"text": text}
	path := "/self-models/" + url.PathEscape(userID) + "/statements"
	status, _, err := c.do(ctx, http.MethodPost, path, payload)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated && status != http.StatusAccepted {
		return fmt.Errorf("%w: submit statement returned %d", therapy.ErrBeliefStoreUnavailable, status)
	}
	return nil
}

type beliefPreferencesPayload struct {
	PrimaryModality      string  `json:"primary_modality"`
	SecondaryModality    string  `json:"secondary_modality"`
	VulnerabilityComfort int     `json:"vulnerability_comfort"`
	ChangeBeliefs        string  `json:"change_beliefs"`
	Confidence           float64 `json:"confidence"`
}

func (c *BeliefStoreClient) AggregatedPreferences(ctx context.Context, userID string) (*therapy.PreferenceProfile, error) {
	path := "/self-models/" + url.PathEscape(userID) + "/preferences"
	status, body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		// no aggregated profile yet; local inference takes over
		return nil, nil
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("%w: preferences returned %d", therapy.ErrBeliefStoreUnavailable, status)
	}

	var payload beliefPreferencesPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: invalid preferences payload: %v", therapy.ErrBeliefStoreUnavailable, err)
	}
	if strings.TrimSpace(payload.PrimaryModality) == "" {
		return nil, nil
	}

	profile := &therapy.PreferenceProfile{
		PrimaryModality:      therapy.Modality(payload.PrimaryModality),
		SecondaryModality:    therapy.Modality(payload.SecondaryModality),
		VulnerabilityComfort: payload.VulnerabilityComfort,
		ChangeBeliefs:        therapy.ChangeBelief(payload.ChangeBeliefs),
		Confidence:           payload.Confidence,
	}
	return profile, nil
}

func (c *BeliefStoreClient) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var bodyReader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", therapy.ErrBeliefStoreUnavailable, err)
	}
	if payload != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", therapy.ErrBeliefStoreUnavailable, err)
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", therapy.ErrBeliefStoreUnavailable, err)
	}
	return response.StatusCode, responseBody, nil
}
