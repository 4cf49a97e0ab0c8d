package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"mindline/backend/internal/config"
	"mindline/backend/internal/therapy"
)

var baseTestConfig config.Config

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	baseTestConfig = newTestConfig()
	os.Exit(m.Run())
}

func newTestConfig() config.Config {
	return config.Config{
		AppEnv:              "test",
		AppName:             "Mindline API Test",
		APIPrefix:           "/api/v1",
		AppPort:             "0",
		DatabaseURL:         "test",
		JWTSecret:           "test-secret-1234567890",
		JWTAlgorithm:        "HS256",
		JWTAudience:         "",
		JWTIssuer:           "",
		CrisisLookbackHours: 24,
		CORSAllowOrigins: []string{
			"http://localhost:5173",
			"http://localhost:3000",
		},
	}
}

// memMessageStore keeps conversation history in memory with the same
// ordering contract as the Postgres store: Recent returns the last N
// messages in chronological order.
type memMessageStore struct {
	mu        sync.Mutex
	byUser    map[string][]therapy.Message
	appendErr error
	recentErr error
}

func newMemMessageStore() *memMessageStore {
	return &memMessageStore{byUser: make(map[string][]therapy.Message)}
}

func (s *memMessageStore) Append(_ context.Context, userID string, msg therapy.Message) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser[userID] = append(s.byUser[userID], msg)
	return nil
}

func (s *memMessageStore) Recent(_ context.Context, userID string, limit int) ([]therapy.Message, error) {
	if s.recentErr != nil {
		return nil, s.recentErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.byUser[userID]
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]therapy.Message, len(all))
	copy(out, all)
	return out, nil
}

func (s *memMessageStore) messages(userID string) []therapy.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]therapy.Message, len(s.byUser[userID]))
	copy(out, s.byUser[userID])
	return out
}

type memIncidentStore struct {
	mu          sync.Mutex
	recorded    []therapy.CrisisAssessment
	recentCount int
	recordErr   error
	countErr    error
}

func (s *memIncidentStore) Record(_ context.Context, _ string, assessment therapy.CrisisAssessment) error {
	if s.recordErr != nil {
		return s.recordErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorded = append(s.recorded, assessment)
	return nil
}

func (s *memIncidentStore) CountRecentHighRiskIncidents(_ context.Context, _ string, _ time.Duration) (int, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recentCount, nil
}

func (s *memIncidentStore) recordedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.recorded)
}

// stubAIClient is a scriptable AIClient that counts calls.
type stubAIClient struct {
	mu      sync.Mutex
	reply   string
	err     error
	calls   int
	lastReq AIModelRequest
}

func (s *stubAIClient) Query(_ context.Context, req AIModelRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func (s *stubAIClient) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type testApp struct {
	app       *App
	messages  *memMessageStore
	incidents *memIncidentStore
	ai        *stubAIClient
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	ai := &stubAIClient{reply: "Stub response.\nStub reflection."}
	messages := newMemMessageStore()
	incidents := &memIncidentStore{}
	generator := aiGenerator{client: ai}
	app := &App{
		cfg:        baseTestConfig,
		ai:         ai,
		generator:  generator,
		messages:   messages,
		incidents:  incidents,
		assessor:   therapy.NewCrisisAssessor(),
		engine:     therapy.NewInferenceEngine(nil),
		router:     therapy.NewRouter(nil),
		plans:      therapy.NewPlanGenerator(),
		dialectics: therapy.NewDialecticManager(generator, nil),
	}
	return &testApp{app: app, messages: messages, incidents: incidents, ai: ai}
}

func signToken(t *testing.T, sub string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().UTC().Add(1 * time.Hour).Unix(),
		"iat": time.Now().UTC().Add(-1 * time.Minute).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(baseTestConfig.JWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func performRequest(
	t *testing.T,
	router http.Handler,
	method, targetPath, token string,
	body any,
) *httptest.ResponseRecorder {
	t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, targetPath, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeJSONMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response JSON: %v; body=%s", err, rec.Body.String())
	}
	return payload
}
