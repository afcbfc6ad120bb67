// Package postgres provides the production event store. It speaks
// database/sql so the driver stays swappable (pgx stdlib in production,
// sqlmock in tests) and emits a NOTIFY per append so other instances can
// invalidate their snapshots.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"pitlog/internal/event"
	id "pitlog/pkg/domain"
)

// NotifyChannel is the postgres NOTIFY channel carrying change signals.
// Payloads are event IDs but receivers treat every signal as "refetch all".
const NotifyChannel = "pitlog_events"

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the events table and its indexes when missing.
// Idempotent; called once at startup.
func (s *Store) EnsureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS events (
			id uuid PRIMARY KEY,
			event_type text NOT NULL,
			event_category text NOT NULL,
			title text NOT NULL,
			description text NOT NULL DEFAULT '',
			metadata jsonb,
			member_id uuid,
			member_name text NOT NULL DEFAULT '',
			member_avatar text NOT NULL DEFAULT '',
			related_event_id uuid,
			attachments jsonb,
			created_at timestamptz NOT NULL
		);
		CREATE INDEX IF NOT EXISTS events_created_at_idx ON events (created_at);
		CREATE INDEX IF NOT EXISTS events_member_idx ON events (member_id) WHERE member_id IS NOT NULL;
	`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure events schema: %w", err)
	}
	return nil
}

const insertQuery = `
		INSERT INTO events (
			id, event_type, event_category, title, description,
			metadata, member_id, member_name, member_avatar,
			related_event_id, attachments, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, clock_timestamp())
		RETURNING created_at
	`

// Append inserts one immutable event. The database assigns created_at so a
// skewed client clock can never reorder the log, then a NOTIFY wakes any
// listening instances.
func (s *Store) Append(ctx context.Context, e event.Event) (event.Event, error) {
	e.ID = id.NewEventID()

	metadata, err := marshalNullable(e.Metadata)
	if err != nil {
		return event.Event{}, fmt.Errorf("marshal event metadata: %w", err)
	}
	attachments, err := marshalNullable(e.Attachments)
	if err != nil {
		return event.Event{}, fmt.Errorf("marshal event attachments: %w", err)
	}

	var memberName, memberAvatar string
	if e.Member != nil {
		memberName = e.Member.Name
		memberAvatar = e.Member.AvatarURL
	}

	row := s.db.QueryRowContext(ctx, insertQuery,
		uuid.UUID(e.ID),
		string(e.Type),
		string(e.Category),
		e.Title,
		e.Description,
		metadata,
		nullableUUID(uuid.UUID(e.MemberID)),
		memberName,
		memberAvatar,
		nullableUUID(uuid.UUID(e.RelatedEventID)),
		attachments,
	)
	if err := row.Scan(&e.CreatedAt); err != nil {
		return event.Event{}, fmt.Errorf("insert event: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`SELECT pg_notify($1, $2)`, NotifyChannel, e.ID.String(),
	); err != nil {
		return event.Event{}, fmt.Errorf("notify event append: %w", err)
	}

	return e, nil
}

const selectColumns = `
		id, event_type, event_category, title, description,
		metadata, member_id, member_name, member_avatar,
		related_event_id, attachments, created_at
	`

// ListAll returns the full log, created_at ascending.
func (s *Store) ListAll(ctx context.Context) ([]event.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM events ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListRecent returns up to limit events, most recent first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]event.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM events ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListByMember returns the member's events, created_at ascending.
func (s *Store) ListByMember(ctx context.Context, memberID id.MemberID) ([]event.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM events WHERE member_id = $1 ORDER BY created_at ASC`,
		uuid.UUID(memberID))
	if err != nil {
		return nil, fmt.Errorf("query member events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]event.Event, error) {
	var events []event.Event

	for rows.Next() {
		var (
			e            event.Event
			eventID      uuid.UUID
			memberID     *uuid.UUID
			relatedID    *uuid.UUID
			memberName   string
			memberAvatar string
			metadata     []byte
			attachments  []byte
		)

		err := rows.Scan(
			&eventID,
			&e.Type,
			&e.Category,
			&e.Title,
			&e.Description,
			&metadata,
			&memberID,
			&memberName,
			&memberAvatar,
			&relatedID,
			&attachments,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}

		e.ID = id.EventID(eventID)
		if memberID != nil {
			e.MemberID = id.MemberID(*memberID)
		}
		if relatedID != nil {
			e.RelatedEventID = id.EventID(*relatedID)
		}
		if memberName != "" || memberAvatar != "" {
			e.Member = &event.Member{Name: memberName, AvatarURL: memberAvatar}
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal event metadata: %w", err)
			}
		}
		if len(attachments) > 0 {
			if err := json.Unmarshal(attachments, &e.Attachments); err != nil {
				return nil, fmt.Errorf("unmarshal event attachments: %w", err)
			}
		}

		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// marshalNullable returns nil for empty values so the column stays NULL
// instead of holding "null" or "[]".
func marshalNullable(v any) ([]byte, error) {
	switch t := v.(type) {
	case event.Metadata:
		if len(t) == 0 {
			return nil, nil
		}
	case []event.Attachment:
		if len(t) == 0 {
			return nil, nil
		}
	}
	return json.Marshal(v)
}

func nullableUUID(u uuid.UUID) any {
	if u == uuid.Nil {
		return nil
	}
	return u
}
