package handler

import (
	"strings"

	"pitlog/internal/event"
	"pitlog/internal/event/service"
	id "pitlog/pkg/domain"
	dErrors "pitlog/pkg/domain-errors"
	pstrings "pitlog/pkg/platform/strings"
)

// LogRequest is the ingestion payload. The acting member comes from the
// bearer token, never from the body.
type LogRequest struct {
	Type           string             `json:"event_type"`
	Category       string             `json:"event_category"`
	Title          string             `json:"title"`
	Description    string             `json:"description,omitempty"`
	Metadata       event.Metadata     `json:"metadata,omitempty"`
	RelatedEventID string             `json:"related_event_id,omitempty"`
	Attachments    []event.Attachment `json:"attachments,omitempty"`
}

// ToParams validates the shape of the request. Semantic validation (unknown
// type or category) stays in the service so the soft-failure contract applies
// to it.
func (r LogRequest) ToParams() (service.Params, error) {
	params := service.Params{
		Type:        event.Type(r.Type),
		Category:    event.Category(r.Category),
		Title:       strings.TrimSpace(r.Title),
		Description: r.Description,
		Metadata:    r.Metadata,
		Attachments: r.Attachments,
	}

	if r.RelatedEventID != "" {
		related, err := id.ParseEventID(r.RelatedEventID)
		if err != nil {
			return service.Params{}, dErrors.New(dErrors.CodeInvalidInput, "invalid related event id")
		}
		params.RelatedEventID = related
	}
	return params, nil
}

// LogResponse is the boolean ingestion outcome.
type LogResponse struct {
	Logged bool `json:"logged"`
}

// EventsResponse wraps an event list.
type EventsResponse struct {
	Events []event.Event `json:"events"`
}

// parseCategories parses a comma-separated category filter. Unknown
// categories are an input error, not silently dropped.
func parseCategories(raw string) ([]event.Category, error) {
	if raw == "" {
		return nil, nil
	}

	var categories []event.Category
	for _, part := range pstrings.DedupeAndTrim(strings.Split(raw, ",")) {
		c := event.Category(part)
		if !c.Valid() {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown category: "+part)
		}
		categories = append(categories, c)
	}
	return categories, nil
}
