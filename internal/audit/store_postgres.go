package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// PostgresStore persists audit events in the audit_events table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	id, err := uuid.Parse(event.ID)
	if err != nil {
		return fmt.Errorf("parse audit event id: %w", err)
	}
	query := `
		INSERT INTO audit_events (id, action, university, year, subject, reason, request_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.db.ExecContext(ctx, query,
		id,
		string(event.Action),
		nullString(event.University),
		nullString(event.Year),
		nullString(event.Subject),
		nullString(event.Reason),
		nullString(event.RequestID),
		event.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByUniversity(ctx context.Context, university string) ([]Event, error) {
	query := `
		SELECT id, action, university, year, subject, reason, request_id, occurred_at
		FROM audit_events
		WHERE university = $1
		ORDER BY occurred_at, id
	`
	rows, err := s.db.QueryContext(ctx, query, university)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var event Event
		var id uuid.UUID
		var action string
		var uni, year, subject, reason, requestID sql.NullString
		if err := rows.Scan(&id, &action, &uni, &year, &subject, &reason, &requestID, &event.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.ID = id.String()
		event.Action = Action(action)
		event.University = uni.String
		event.Year = year.String
		event.Subject = subject.String
		event.Reason = reason.String
		event.RequestID = requestID.String
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
