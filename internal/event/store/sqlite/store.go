// Package sqlite provides an embedded event store for single-binary
// deployments. It uses the cgo-free modernc driver, so dev setups need no
// external database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"pitlog/internal/event"
	id "pitlog/pkg/domain"
)

type Store struct {
	db *sql.DB

	// Timestamp assignment happens in Go because sqlite's clock has second
	// resolution on some platforms. The mutex also serializes writers, which
	// sqlite requires anyway.
	mu     sync.Mutex
	lastTS time.Time
	now    func() time.Time
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// modernc sqlite supports one writer; cap the pool to avoid SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, now: time.Now}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			event_type TEXT NOT NULL,
			event_category TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			metadata TEXT,
			member_id TEXT,
			member_name TEXT NOT NULL DEFAULT '',
			member_avatar TEXT NOT NULL DEFAULT '',
			related_event_id TEXT,
			attachments TEXT,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS events_created_at_idx ON events (created_at);
	`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure events schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Append assigns ID and a monotonic CreatedAt, then inserts the event.
func (s *Store) Append(ctx context.Context, e event.Event) (event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now()
	if !ts.After(s.lastTS) {
		ts = s.lastTS.Add(time.Microsecond)
	}
	s.lastTS = ts

	e.ID = id.NewEventID()
	e.CreatedAt = ts

	var metadata, attachments any
	if len(e.Metadata) > 0 {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return event.Event{}, fmt.Errorf("marshal event metadata: %w", err)
		}
		metadata = string(b)
	}
	if len(e.Attachments) > 0 {
		b, err := json.Marshal(e.Attachments)
		if err != nil {
			return event.Event{}, fmt.Errorf("marshal event attachments: %w", err)
		}
		attachments = string(b)
	}

	var memberID, relatedID any
	if !e.MemberID.IsNil() {
		memberID = e.MemberID.String()
	}
	if !e.RelatedEventID.IsNil() {
		relatedID = e.RelatedEventID.String()
	}
	var memberName, memberAvatar string
	if e.Member != nil {
		memberName = e.Member.Name
		memberAvatar = e.Member.AvatarURL
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (
			id, event_type, event_category, title, description,
			metadata, member_id, member_name, member_avatar,
			related_event_id, attachments, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(),
		string(e.Type),
		string(e.Category),
		e.Title,
		e.Description,
		metadata,
		memberID,
		memberName,
		memberAvatar,
		relatedID,
		attachments,
		ts.UnixMicro(),
	)
	if err != nil {
		return event.Event{}, fmt.Errorf("insert event: %w", err)
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
		`SELECT `+selectColumns+` FROM events ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListByMember returns the member's events, created_at ascending.
func (s *Store) ListByMember(ctx context.Context, memberID id.MemberID) ([]event.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM events WHERE member_id = ? ORDER BY created_at ASC`,
		memberID.String())
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
			eventID      string
			memberID     sql.NullString
			relatedID    sql.NullString
			memberName   string
			memberAvatar string
			metadata     sql.NullString
			attachments  sql.NullString
			createdAt    int64
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
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}

		parsed, err := uuid.Parse(eventID)
		if err != nil {
			return nil, fmt.Errorf("parse event id: %w", err)
		}
		e.ID = id.EventID(parsed)
		e.CreatedAt = time.UnixMicro(createdAt).UTC()

		if memberID.Valid {
			u, err := uuid.Parse(memberID.String)
			if err != nil {
				return nil, fmt.Errorf("parse member id: %w", err)
			}
			e.MemberID = id.MemberID(u)
		}
		if relatedID.Valid {
			u, err := uuid.Parse(relatedID.String)
			if err != nil {
				return nil, fmt.Errorf("parse related event id: %w", err)
			}
			e.RelatedEventID = id.EventID(u)
		}
		if memberName != "" || memberAvatar != "" {
			e.Member = &event.Member{Name: memberName, AvatarURL: memberAvatar}
		}
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &e.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal event metadata: %w", err)
			}
		}
		if attachments.Valid && attachments.String != "" {
			if err := json.Unmarshal([]byte(attachments.String), &e.Attachments); err != nil {
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
