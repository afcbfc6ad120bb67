// Package event defines the activity log's single entity. Events are
// immutable, timestamped records of team actions; everything the time machine
// derives (histograms, rollups, replay, evolution) is recomputed from the
// append-only event set, never stored.
package event

import (
	"time"

	id "pitlog/pkg/domain"
)

// Type describes the action an event records.
type Type string

const (
	TypeCreation   Type = "creation"
	TypeEdit       Type = "edit"
	TypeCompletion Type = "completion"
	TypeDeletion   Type = "deletion"
	TypeUpload     Type = "upload"
	TypeComment    Type = "comment"
	TypeIteration  Type = "iteration"
)

// Category describes the domain area an event belongs to. An event carries
// exactly one category; there is no multi-tagging.
type Category string

const (
	CategoryGoal          Category = "goal"
	CategoryTask          Category = "task"
	CategoryEvidence      Category = "evidence"
	CategoryBrainstorming Category = "brainstorming"
	CategoryMeeting       Category = "meeting"
	CategoryDecision      Category = "decision"
	CategoryPrototype     Category = "prototype"
	CategoryTest          Category = "test"
	CategoryFeedback      Category = "feedback"
	CategoryIteration     Category = "iteration"
	CategoryComment       Category = "comment"
	CategorySchedule      Category = "schedule"
	CategoryTimeline      Category = "timeline"
	CategoryMethodology   Category = "methodology"
	CategoryInnovation    Category = "innovation"
	CategoryRobot         Category = "robot"
)

var validTypes = map[Type]struct{}{
	TypeCreation:   {},
	TypeEdit:       {},
	TypeCompletion: {},
	TypeDeletion:   {},
	TypeUpload:     {},
	TypeComment:    {},
	TypeIteration:  {},
}

var validCategories = map[Category]struct{}{
	CategoryGoal:          {},
	CategoryTask:          {},
	CategoryEvidence:      {},
	CategoryBrainstorming: {},
	CategoryMeeting:       {},
	CategoryDecision:      {},
	CategoryPrototype:     {},
	CategoryTest:          {},
	CategoryFeedback:      {},
	CategoryIteration:     {},
	CategoryComment:       {},
	CategorySchedule:      {},
	CategoryTimeline:      {},
	CategoryMethodology:   {},
	CategoryInnovation:    {},
	CategoryRobot:         {},
}

// Valid reports whether t is a known event type.
func (t Type) Valid() bool {
	_, ok := validTypes[t]
	return ok
}

// Valid reports whether c is a known event category.
func (c Category) Valid() bool {
	_, ok := validCategories[c]
	return ok
}

// Categories returns every known category. Used by aggregation to build full
// distributions and by handlers to validate filters.
func Categories() []Category {
	return []Category{
		CategoryGoal, CategoryTask, CategoryEvidence, CategoryBrainstorming,
		CategoryMeeting, CategoryDecision, CategoryPrototype, CategoryTest,
		CategoryFeedback, CategoryIteration, CategoryComment, CategorySchedule,
		CategoryTimeline, CategoryMethodology, CategoryInnovation, CategoryRobot,
	}
}

// Metadata is an open-ended key/value map attached to events. Heuristic
// consumers (the evolution extractor) read it through the typed accessors,
// which treat missing or wrong-typed values as absent rather than failing.
type Metadata map[string]any

// String returns the string stored under key, or "" when the key is missing
// or holds a non-string value.
func (m Metadata) String(key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

// Bool returns the bool stored under key, or false when the key is missing or
// holds a non-bool value.
func (m Metadata) Bool(key string) bool {
	if m == nil {
		return false
	}
	b, _ := m[key].(bool)
	return b
}

// Attachment is an opaque descriptor for a file linked to an event. The core
// never interprets it beyond carrying it through.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size,omitempty"`
}

// Member is the denormalized display shape of the acting member, carried on
// events for read paths so listings need no join.
type Member struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Event is an immutable, timestamped record of a domain action. ID and
// CreatedAt are assigned by the store at insertion; CreatedAt is the sole
// ordering key for every derived view.
type Event struct {
	ID             id.EventID   `json:"id"`
	Type           Type         `json:"event_type"`
	Category       Category     `json:"event_category"`
	Title          string       `json:"title"`
	Description    string       `json:"description,omitempty"`
	Metadata       Metadata     `json:"metadata,omitempty"`
	MemberID       id.MemberID  `json:"member_id,omitempty"`
	Member         *Member      `json:"member,omitempty"`
	RelatedEventID id.EventID   `json:"related_event_id,omitempty"`
	Attachments    []Attachment `json:"attachments,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// HasActor reports whether the event was recorded by a known member.
// System-generated events have no actor and are excluded from member rollups.
func (e Event) HasActor() bool {
	return !e.MemberID.IsNil()
}

// Day returns the calendar day of the event in loc. Calendar views bucket by
// the viewer's local date, not UTC.
func (e Event) Day(loc *time.Location) time.Time {
	t := e.CreatedAt.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// Index maps events by ID for O(1) weak-reference resolution. A dangling
// RelatedEventID simply misses the map; callers treat that as absent.
func Index(events []Event) map[id.EventID]Event {
	byID := make(map[id.EventID]Event, len(events))
	for _, e := range events {
		byID[e.ID] = e
	}
	return byID
}

// Resolve looks up the event referenced by e.RelatedEventID in byID.
// Returns the zero event and false when no link is set or the target is gone.
func Resolve(e Event, byID map[id.EventID]Event) (Event, bool) {
	if e.RelatedEventID.IsNil() {
		return Event{}, false
	}
	target, ok := byID[e.RelatedEventID]
	return target, ok
}
