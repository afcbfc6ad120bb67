// Package domain holds typed identifiers shared across features. Typed IDs
// prevent cross-type assignment at compile time; parsing enforces the
// "valid, non-nil UUID" invariant at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "pitlog/pkg/domain-errors"
)

// EventID identifies a single activity log event.
type EventID uuid.UUID

// MemberID identifies a team member acting on the log.
type MemberID uuid.UUID

// ReplayID identifies a server-side replay session.
type ReplayID uuid.UUID

// NewEventID returns a fresh random event ID.
func NewEventID() EventID { return EventID(uuid.New()) }

// NewReplayID returns a fresh random replay session ID.
func NewReplayID() ReplayID { return ReplayID(uuid.New()) }

// ParseEventID validates and returns an EventID.
func ParseEventID(s string) (EventID, error) {
	u, err := parse(s)
	return EventID(u), err
}

// ParseMemberID validates and returns a MemberID.
func ParseMemberID(s string) (MemberID, error) {
	u, err := parse(s)
	return MemberID(u), err
}

// ParseReplayID validates and returns a ReplayID.
func ParseReplayID(s string) (ReplayID, error) {
	u, err := parse(s)
	return ReplayID(u), err
}

func parse(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return u, nil
}

func (id EventID) String() string  { return uuid.UUID(id).String() }
func (id MemberID) String() string { return uuid.UUID(id).String() }
func (id ReplayID) String() string { return uuid.UUID(id).String() }

func (id EventID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id MemberID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ReplayID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// Text marshaling keeps the canonical UUID string form on the wire and in
// JSON; defined types do not inherit it from uuid.UUID.

func (id EventID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id MemberID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id ReplayID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *EventID) UnmarshalText(b []byte) error  { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *MemberID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ReplayID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
