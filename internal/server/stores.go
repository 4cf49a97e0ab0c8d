package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"mindline/backend/internal/therapy"
)

// messageStore persists conversation turns. History ordering is the
// caller's responsibility per conversation; the store just appends.
type messageStore interface {
	Append(ctx context.Context, userID string, msg therapy.Message) error
	Recent(ctx context.Context, userID string, limit int) ([]therapy.Message, error)
}

// incidentStore persists crisis assessments and serves the lookback count
// the assessor scores against.
type incidentStore interface {
	therapy.IncidentHistory
	Record(ctx context.Context, userID string, assessment therapy.CrisisAssessment) error
}

type pgMessageStore struct {
	db *pgxpool.Pool
}

func newPGMessageStore(db *pgxpool.Pool) *pgMessageStore {
	return &pgMessageStore{db: db}
}

func (s *pgMessageStore) Append(ctx context.Context, userID string, msg therapy.Message) error {
	timestamp := msg.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}
	_, err := s.db.Exec(
		ctx,
		`INSERT INTO "ChatMessage" (id, "userId", role, content, "createdAt")
		 VALUES ($1, $2, $3, $4, $5)`,
		uuid.NewString(),
		userID,
		string(msg.Role),
		msg.Content,
		timestamp,
	)
	return err
}

func (s *pgMessageStore) Recent(ctx context.Context, userID string, limit int) ([]therapy.Message, error) {
	rows, err := s.db.Query(
		ctx,
		`SELECT role, content, "createdAt"
		 FROM "ChatMessage"
		 WHERE "userId" = $1
		 ORDER BY "createdAt" DESC
		 LIMIT $2`,
		userID,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]therapy.Message, 0, limit)
	for rows.Next() {
		var role, content string
		var createdAt time.Time
		if err := rows.Scan(&role, &content, &createdAt); err != nil {
			return nil, err
		}
		messages = append(messages, therapy.Message{
			Role:      therapy.Role(role),
			Content:   content,
			Timestamp: createdAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// query returns newest-first; history must be chronological
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

type pgIncidentStore struct {
	db *pgxpool.Pool
}

func newPGIncidentStore(db *pgxpool.Pool) *pgIncidentStore {
	return &pgIncidentStore{db: db}
}

func (s *pgIncidentStore) Record(ctx context.Context, userID string, assessment therapy.CrisisAssessment) error {
	factorsJSON, err := json.Marshal(assessment.RiskFactors)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		ctx,
		`INSERT INTO "CrisisIncident" (id, "userId", "riskScore", "riskLevel", "riskFactorsJson", "createdAt")
		 VALUES ($1, $2, $3, $4, $5, NOW())`,
		uuid.NewString(),
		userID,
		assessment.RiskScore,
		string(assessment.RiskLevel),
		string(factorsJSON),
	)
	return err
}

func (s *pgIncidentStore) CountRecentHighRiskIncidents(ctx context.Context, userID string, window time.Duration) (int, error) {
	var count int
	err := s.db.QueryRow(
		ctx,
		`SELECT COUNT(*)
		 FROM "CrisisIncident"
		 WHERE "userId" = $1
		   AND "riskLevel" IN ('high', 'critical')
		   AND "createdAt" >= NOW() - make_interval(secs => $2)`,
		userID,
		window.Seconds(),
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
