package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mindline/backend/internal/config"
	"mindline/backend/internal/therapy"
)

// App wires the therapy core to its collaborators. Every dependency is
// constructed here and injected explicitly; nothing is package-level state.
type App struct {
	cfg config.Config
	db  *pgxpool.Pool

	ai        AIClient
	generator therapy.Generator
	beliefs   therapy.BeliefStore

	messages  messageStore
	incidents incidentStore

	assessor   *therapy.CrisisAssessor
	engine     *therapy.InferenceEngine
	router     *therapy.Router
	plans      *therapy.PlanGenerator
	dialectics *therapy.DialecticManager
}

func New(cfg config.Config, db *pgxpool.Pool) *App {
	var ai AIClient
	if strings.TrimSpace(cfg.OpenAIAPIKey) == "" && cfg.AppEnv == "local" {
		ai = MockAIClient{}
	} else {
		ai = NewOpenAIResponsesClient(cfg)
	}

	generator := aiGenerator{client: ai}

	// a nil *BeliefStoreClient must become a nil interface, or the engine
	// would call through it
	var beliefs therapy.BeliefStore
	if client := NewBeliefStoreClient(cfg); client != nil {
		beliefs = client
	}

	return &App{
		cfg:        cfg,
		db:         db,
		ai:         ai,
		generator:  generator,
		beliefs:    beliefs,
		messages:   newPGMessageStore(db),
		incidents:  newPGIncidentStore(db),
		assessor:   therapy.NewCrisisAssessor(),
		engine:     therapy.NewInferenceEngine(beliefs),
		router:     therapy.NewRouter(nil),
		plans:      therapy.NewPlanGenerator(),
		dialectics: therapy.NewDialecticManager(aiGenerator{client: ai}, beliefs),
	}
}

// BeliefStoreClient exposes the configured belief-store client for the
// startup readiness check; nil when the external path is disabled.
func (a *App) BeliefStoreClient() *BeliefStoreClient {
	client, _ := a.beliefs.(*BeliefStoreClient)
	return client
}

func (a *App) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     a.cfg.CORSAllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", a.health)

	api := router.Group(a.cfg.APIPrefix)
	api.Use(a.authMiddleware())

	api.POST("/chat/message", a.postChatMessage)
	api.GET("/profile/preferences", a.getPreferences)
	api.GET("/safety-plan", a.getSafetyPlan)
	api.POST("/dialectic/pose", a.poseDialectic)
	api.POST("/dialectic/answer", a.answerDialectic)

	return router
}

func (a *App) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "mindline-api",
	})
}

func (a *App) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
			writeError(c, http.StatusUnauthorized, "Bearer token required")
			return
		}
		tokenString := strings.TrimSpace(authHeader[len("Bearer "):])
		if tokenString == "" {
			writeError(c, http.StatusUnauthorized, "Bearer token required")
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			if token.Method == nil || token.Method.Alg() != a.cfg.JWTAlgorithm {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(a.cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			writeError(c, http.StatusUnauthorized, "Invalid bearer token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			writeError(c, http.StatusUnauthorized, "Invalid token payload")
			return
		}
		if a.cfg.JWTAudience != "" && !claimHasAudience(claims["aud"], a.cfg.JWTAudience) {
			writeError(c, http.StatusUnauthorized, "Invalid token audience")
			return
		}
		if a.cfg.JWTIssuer != "" {
			issuer, _ := claims["iss"].(string)
			if issuer != a.cfg.JWTIssuer {
				writeError(c, http.StatusUnauthorized, "Invalid token issuer")
				return
			}
		}
		sub, _ := claims["sub"].(string)
		sub = strings.TrimSpace(sub)
		if sub == "" {
			writeError(c, http.StatusUnauthorized, "Token subject missing")
			return
		}

		c.Set("userID", sub)
		c.Next()
	}
}

func claimHasAudience(value any, audience string) bool {
	switch v := value.(type) {
	case string:
		return v == audience
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s == audience {
				return true
			}
		}
	case []string:
		for _, item := range v {
			if item == audience {
				return true
			}
		}
	}
	return false
}

func userIDFromContext(c *gin.Context) (string, bool) {
	raw, ok := c.Get("userID")
	if !ok {
		return "", false
	}
	userID, ok := raw.(string)
	return userID, ok && userID != ""
}

func writeError(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

func mustJSON(c *gin.Context, payload any) bool {
	if err := c.ShouldBindJSON(payload); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}

func parseJSONStringMap(input []byte) map[string]any {
	if len(input) == 0 {
		return map[string]any{}
	}
	var result map[string]any
	if err := json.Unmarshal(input, &result); err != nil || result == nil {
		return map[string]any{}
	}
	return result
}

func toString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	default:
		return ""
	}
}
