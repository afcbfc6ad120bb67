// Package evolution scans the event log for lifecycle milestones and builds
// the narrative timeline: problem, research, first prototype, failure,
// improvement, final version. The detection is a heuristic keyword/metadata
// match, not a state machine. Absence of a milestone is valid output.
package evolution

import (
	"sort"
	"strings"

	"pitlog/internal/event"
)

// Kind identifies one milestone type in the narrative.
type Kind string

const (
	KindProblem     Kind = "problem"
	KindResearch    Kind = "research"
	KindSolution    Kind = "solution"
	KindFailure     Kind = "failure"
	KindImprovement Kind = "improvement"
	KindFinal       Kind = "final"
)

// Rule detects one milestone. An event matches when its category equals
// Category and at least one of the secondary conditions holds; a rule with no
// secondary conditions matches on category alone. All metadata reads are
// defensive: a missing or wrong-typed field simply does not match.
//
// The keyword matching is locale- and phrasing-sensitive by nature. The table
// is explicit and injectable so deployments can swap keyword sets instead of
// patching code.
type Rule struct {
	Kind     Kind
	Category event.Category

	// Keywords are lowercase substrings matched against the event title.
	Keywords []string
	// Section matches the metadata "section" value exactly.
	Section string
	// FailedRun additionally matches events whose metadata carries an
	// explicit success=false.
	FailedRun bool

	// TakeLast picks the last matching event as representative instead of
	// the first.
	TakeLast bool
	// MinMatches suppresses the milestone until at least this many events
	// match. Zero means one.
	MinMatches int
}

// DefaultRules is the stock rule table. Keywords are Portuguese because that
// is the language the teams log in.
func DefaultRules() []Rule {
	return []Rule{
		{
			Kind:     KindProblem,
			Category: event.CategoryBrainstorming,
			Keywords: []string{"problema", "desafio"},
			Section:  "problema",
		},
		{
			Kind:     KindResearch,
			Category: event.CategoryBrainstorming,
			Keywords: []string{"pesquisa", "estudo"},
			Section:  "pesquisa",
		},
		{
			Kind:     KindSolution,
			Category: event.CategoryPrototype,
		},
		{
			Kind:      KindFailure,
			Category:  event.CategoryTest,
			Keywords:  []string{"falha", "erro"},
			FailedRun: true,
		},
		{
			Kind:     KindImprovement,
			Category: event.CategoryIteration,
			Keywords: []string{"melhoria", "ajuste", "otimiza"},
		},
		{
			Kind:       KindFinal,
			Category:   event.CategoryPrototype,
			TakeLast:   true,
			MinMatches: 2,
		},
	}
}

// Milestone is one detected narrative entry: the kind plus its representative
// event.
type Milestone struct {
	Kind  Kind        `json:"kind"`
	Event event.Event `json:"event"`
}

// Extractor runs a rule table over event sets.
type Extractor struct {
	rules []Rule
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithRules replaces the default rule table.
func WithRules(rules []Rule) Option {
	return func(x *Extractor) {
		if len(rules) > 0 {
			x.rules = rules
		}
	}
}

// New builds an Extractor with the default rule table unless overridden.
func New(opts ...Option) *Extractor {
	x := &Extractor{rules: DefaultRules()}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Extract scans events and returns the detected milestones sorted ascending
// by their representative event's creation time. At most one milestone per
// rule; unmet rules are omitted, so the result can be shorter than the table.
// Deterministic: the same event set always yields the same list.
func (x *Extractor) Extract(events []event.Event) []Milestone {
	sorted := append([]event.Event{}, events...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	milestones := make([]Milestone, 0, len(x.rules))
	for _, rule := range x.rules {
		if representative, ok := apply(rule, sorted); ok {
			milestones = append(milestones, Milestone{Kind: rule.Kind, Event: representative})
		}
	}

	sort.SliceStable(milestones, func(i, j int) bool {
		return milestones[i].Event.CreatedAt.Before(milestones[j].Event.CreatedAt)
	})
	return milestones
}

func apply(rule Rule, sorted []event.Event) (event.Event, bool) {
	needed := rule.MinMatches
	if needed < 1 {
		needed = 1
	}

	var representative event.Event
	count := 0
	for _, e := range sorted {
		if !matches(rule, e) {
			continue
		}
		count++
		if count == 1 || rule.TakeLast {
			representative = e
		}
	}
	if count < needed {
		return event.Event{}, false
	}
	return representative, true
}

func matches(rule Rule, e event.Event) bool {
	if e.Category != rule.Category {
		return false
	}

	// No secondary conditions: category alone decides.
	if len(rule.Keywords) == 0 && rule.Section == "" && !rule.FailedRun {
		return true
	}

	title := strings.ToLower(e.Title)
	for _, kw := range rule.Keywords {
		if strings.Contains(title, kw) {
			return true
		}
	}
	if rule.Section != "" && e.Metadata.String("section") == rule.Section {
		return true
	}
	if rule.FailedRun && failedRun(e.Metadata) {
		return true
	}
	return false
}

// failedRun reports whether metadata carries an explicit success=false. A
// missing or non-bool value is not a failure.
func failedRun(m event.Metadata) bool {
	v, ok := m["success"]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && !b
}
