package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"intakedesk/internal/intake/models"
	"intakedesk/pkg/platform/sentinel"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists submissions in the intake_submissions table.
type PostgresStore struct {
	db DBTX
}

// NewPostgres constructs a PostgreSQL-backed submission store.
func NewPostgres(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, rec models.Record) (models.Record, error) {
	services, err := json.Marshal(rec.Services)
	if err != nil {
		return models.Record{}, fmt.Errorf("marshal services: %w", err)
	}
	referrals := rec.ReferralSource
	if referrals == nil {
		referrals = []string{}
	}

	const query = `
		INSERT INTO intake_submissions (
			full_name, email, phone_number, company_name, role_position,
			services, selected_package, needs_and_goals, office_duration, team_size,
			event_type, expected_attendees, preferred_date, currently_using_tools, main_challenge,
			referral_source, other_referral_source, preferred_contact, best_time_to_reach,
			best_time_from, best_time_to
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		RETURNING id, created_at
	`
	err = s.db.QueryRow(ctx, query,
		rec.FullName, rec.Email, rec.PhoneNumber, rec.CompanyName, rec.RolePosition,
		services, rec.SelectedPackage, rec.NeedsAndGoals, rec.OfficeDuration, rec.TeamSize,
		rec.EventType, rec.ExpectedAttendees, rec.PreferredDate, rec.CurrentlyUsingTools, rec.MainChallenge,
		referrals, rec.OtherReferralSource, rawJSON(rec.PreferredContact), rec.BestTimeToReach,
		rec.BestTimeFrom, rec.BestTimeTo,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return models.Record{}, fmt.Errorf("insert submission: %w", err)
	}
	rec.ReferralSource = referrals
	return rec, nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]models.Record, error) {
	query := `SELECT ` + selectColumns + ` FROM intake_submissions ORDER BY created_at DESC LIMIT $1`
	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	out := make([]models.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (models.Record, error) {
	query := `SELECT ` + selectColumns + ` FROM intake_submissions WHERE id = $1`
	rec, err := scanRecord(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Record{}, sentinel.ErrNotFound
		}
		return models.Record{}, fmt.Errorf("find submission by id: %w", err)
	}
	return rec, nil
}

// Delete removes the record if present. Zero affected rows is not an error.
func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM intake_submissions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete submission: %w", err)
	}
	return nil
}

func scanRecord(row pgx.Row) (models.Record, error) {
	var (
		rec      models.Record
		services []byte
	)
	err := row.Scan(
		&rec.ID, &rec.CreatedAt, &rec.FullName, &rec.Email, &rec.PhoneNumber, &rec.CompanyName, &rec.RolePosition,
		&services, &rec.SelectedPackage, &rec.NeedsAndGoals, &rec.OfficeDuration, &rec.TeamSize,
		&rec.EventType, &rec.ExpectedAttendees, &rec.PreferredDate, &rec.CurrentlyUsingTools, &rec.MainChallenge,
		&rec.ReferralSource, &rec.OtherReferralSource, &rec.PreferredContact, &rec.BestTimeToReach,
		&rec.BestTimeFrom, &rec.BestTimeTo,
	)
	if err != nil {
		return models.Record{}, err
	}
	if len(services) > 0 {
		if err := json.Unmarshal(services, &rec.Services); err != nil {
			return models.Record{}, fmt.Errorf("unmarshal services: %w", err)
		}
	}
	return rec, nil
}

// rawJSON passes stored JSON through untouched and maps empty to NULL.
func rawJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return json.RawMessage(b)
}
