package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mindline/backend/internal/config"
	"mindline/backend/internal/therapy"
)

type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type AIModelRequest struct {
	SystemPrompt string
	Conversation []ChatTurn
	UserPrompt   string
}

// AIClient is the transport-level generation client. The therapy core never
// sees it directly; aiGenerator adapts it to therapy.Generator.
type AIClient interface {
	Query(ctx context.Context, req AIModelRequest) (string, error)
}

type OpenAIResponsesClient struct {
	apiKey          string
	baseURL         string
	model           string
	maxOutputTokens int
	httpClient      *http.Client
}

func NewOpenAIResponsesClient(cfg config.Config) *OpenAIResponsesClient {
	timeoutSeconds := cfg.AITimeoutSeconds
	if timeoutSeconds <= 0 {
		timeoutSeconds = 20
	}
	return &OpenAIResponsesClient{
		apiKey:          strings.TrimSpace(cfg.OpenAIAPIKey),
		baseURL:         strings.TrimRight(strings.TrimSpace(cfg.OpenAIBaseURL), "/"),
		model:           strings.TrimSpace(cfg.OpenAIModel),
		maxOutputTokens: cfg.AIMaxOutputTokens,
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutSeconds) * time.Second,
		},
	}
}

func (c *OpenAIResponsesClient) Query(ctx context.Context, req AIModelRequest) (string, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return "", errors.New("OPENAI_API_KEY is not configured")
	}
	if strings.TrimSpace(c.baseURL) == "" {
		return "", errors.New("OPENAI_BASE_URL is not configured")
	}
	if strings.TrimSpace(c.model) == "" {
		return "", errors.New("OPENAI_MODEL is not configured")
	}

	type inputText struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	type inputBlock struct {
		Role    string      `json:"role"`
		Content []inputText `json:"content"`
	}

	input := make([]inputBlock, 0, len(req.Conversation)+2)
	if strings.TrimSpace(req.SystemPrompt) != "" {
		input = append(input, inputBlock{
			Role:    "system",
			Content: []inputText{{Type: "input_text", Text: strings.TrimSpace(req.SystemPrompt)}},
		})
	}
	for _, turn := range req.Conversation {
		role := strings.ToLower(strings.TrimSpace(turn.Role))
		if role != "user" && role != "assistant" {
			continue
		}
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		contentType := "input_text"
		if role == "assistant" {
			contentType = "output_text"
		}
		input = append(input, inputBlock{
			Role:    role,
			Content: []inputText{{Type: contentType, Text: content}},
		})
	}
	if userPrompt := strings.TrimSpace(req.UserPrompt); userPrompt != "" {
		input = append(input, inputBlock{
			Role:    "user",
			Content: []inputText{{Type: "input_text", Text: userPrompt}},
		})
	}
	if len(input) == 0 {
		return "", errors.New("AI request input is empty")
	}

	maxTokens := c.maxOutputTokens
	if maxTokens < 300 {
		maxTokens = 300
	}
	payload := map[string]any{
		"model":             c.model,
		"input":             input,
		"max_output_tokens": maxTokens,
	}
	bodyRaw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	statusCode, responseBody, err := c.post(ctx, bodyRaw)
	if err != nil {
		return "", err
	}
	// one retry on upstream 5xx; anything else is terminal
	if statusCode >= 500 && statusCode < 600 {
		statusCode, responseBody, err = c.post(ctx, bodyRaw)
		if err != nil {
			return "", err
		}
	}
	if statusCode < 200 || statusCode >= 300 {
		return "", fmt.Errorf("openai responses error (%d): %s", statusCode, strings.TrimSpace(string(responseBody)))
	}

	parsed := parseJSONStringMap(responseBody)
	answer := extractResponseAnswer(parsed)
	if strings.TrimSpace(answer) == "" {
		return "", errors.New("openai response answer is empty")
	}
	return answer, nil
}

func (c *OpenAIResponsesClient) post(ctx context.Context, body []byte) (int, []byte, error) {
	request, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/responses",
		bytes.NewReader(body),
	)
	if err != nil {
		return 0, nil, err
	}
	request.Header.Set("Authorization", "Bearer "+c.apiKey)
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return 0, nil, err
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return 0, nil, err
	}
	return response.StatusCode, responseBody, nil
}

func extractResponseAnswer(data map[string]any) string {
	direct := strings.TrimSpace(toString(data["output_text"]))
	if direct != "" {
		return direct
	}

	outputs, ok := data["output"].([]any)
	if !ok {
		return ""
	}
	parts := make([]string, 0)
	for _, item := range outputs {
		block, ok := item.(map[string]any)
		if !ok {
			continue
		}
		contentList, ok := block["content"].([]any)
		if !ok {
			continue
		}
		for _, contentItem := range contentList {
			contentMap, ok := contentItem.(map[string]any)
			if !ok {
				continue
			}
			contentType := strings.ToLower(strings.TrimSpace(toString(contentMap["type"])))
			if contentType != "output_text" && contentType != "text" {
				continue
			}
			text := strings.TrimSpace(toString(contentMap["text"]))
			if text != "" {
				parts = append(parts, text)
			}
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// MockAIClient stands in for the generation service during local
// development and tests.
type MockAIClient struct{}

func (m MockAIClient) Query(_ context.Context, req AIModelRequest) (string, error) {
	question := strings.TrimSpace(req.UserPrompt)
	if question == "" {
		return "I'm here with you. What would you like to talk about?", nil
	}
	lowered := strings.ToLower(question)
	if strings.Contains(lowered, "thought") || strings.Contains(lowered, "evidence") {
		return "Mock response: let's write that thought down and look at the evidence on both sides.", nil
	}
	if strings.Contains(lowered, "breath") || strings.Contains(lowered, "present") {
		return "Mock response: let's pause together and notice three slow breaths before we continue.", nil
	}
	return "Mock response: " + question, nil
}

// aiGenerator adapts an AIClient to the therapy.Generator contract. Any
// transport failure maps to ErrGenerationUnavailable so the core can apply
// its fixed fallback text.
type aiGenerator struct {
	client AIClient
}

func (g aiGenerator) Generate(ctx context.Context, systemInstructions string, messages []therapy.Message) (string, error) {
	conversation := make([]ChatTurn, 0, len(messages))
	userPrompt := ""
	for idx, msg := range messages {
		if idx == len(messages)-1 && msg.Role == therapy.RoleUser {
			userPrompt = msg.Content
			continue
		}
		conversation = append(conversation, ChatTurn{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	answer, err := g.client.Query(ctx, AIModelRequest{
		SystemPrompt: systemInstructions,
		Conversation: conversation,
		UserPrompt:   userPrompt,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", therapy.ErrGenerationUnavailable, err)
	}
	return answer, nil
}
