package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	audit "intakedesk/pkg/platform/audit"
)

// Execer is satisfied by *pgxpool.Pool and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store appends audit events to the audit_events table created by the schema migrations.
type Store struct {
	db Execer
}

func New(db Execer) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	category := event.Category
	if category == "" {
		category = audit.AuditEvent(event.Action).Category()
	}
	const query = `
		INSERT INTO audit_events (id, category, action, subject, actor_id, decision, reason, ip, user_agent, browser, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.db.Exec(ctx, query,
		uuid.New(),
		string(category),
		event.Action,
		nullable(event.Subject),
		nullable(event.ActorID),
		nullable(event.Decision),
		nullable(event.Reason),
		nullable(event.IP),
		nullable(event.UserAgent),
		nullable(event.Browser),
		nullable(event.RequestID),
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
