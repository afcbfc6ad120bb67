// Package report renders aggregation results into flat text documents
// suitable for direct download. Generation is a pure function of its inputs;
// the caller supplies the generation time so output is deterministic.
package report

import (
	"fmt"
	"strings"
	"time"

	"pitlog/internal/event"
	"pitlog/internal/timemachine/aggregate"
	pstrings "pitlog/pkg/platform/strings"
)

// Kind selects the body shape of a report.
type Kind string

const (
	// KindComplete lists every event chronologically.
	KindComplete Kind = "complete"
	// KindMembers ranks members by activity.
	KindMembers Kind = "members"
	// KindWeekly lists per-week event counts.
	KindWeekly Kind = "weekly"
)

// Valid reports whether k is a known report kind.
func (k Kind) Valid() bool {
	switch k {
	case KindComplete, KindMembers, KindWeekly:
		return true
	}
	return false
}

// Stat is one label:value line of the stats section. Order is preserved as
// given.
type Stat struct {
	Label string
	Value string
}

// Definition describes one report to generate.
type Definition struct {
	Kind  Kind
	Title string
	Stats []Stat
}

// Input is the computed data a report body draws from. Only the slice
// relevant to the report kind needs to be populated.
type Input struct {
	Events  []event.Event
	Rollups []aggregate.MemberRollup
	Weeks   []aggregate.WeekCount
}

const timestampLayout = "2006-01-02 15:04:05 MST"

// Generate renders the report as a flat text document: header with title and
// generation timestamp, the stats lines in given order, then the body for the
// kind. Empty inputs still yield a well-formed document.
func Generate(def Definition, in Input, generatedAt time.Time) string {
	var b strings.Builder

	title := def.Title
	if title == "" {
		title = "Relatório"
	}
	fmt.Fprintf(&b, "%s\n", title)
	fmt.Fprintf(&b, "Gerado em: %s\n", generatedAt.Format(timestampLayout))
	b.WriteString(strings.Repeat("=", len([]rune(title))))
	b.WriteString("\n")

	if len(def.Stats) > 0 {
		b.WriteString("\nEstatísticas:\n")
		for _, stat := range def.Stats {
			fmt.Fprintf(&b, "  %s: %s\n", stat.Label, stat.Value)
		}
	}

	switch def.Kind {
	case KindComplete:
		writeEvents(&b, in.Events, generatedAt.Location())
	case KindMembers:
		writeRollups(&b, in.Rollups)
	case KindWeekly:
		writeWeeks(&b, in.Weeks)
	}

	return b.String()
}

// Filename is the download name: slugged title plus the ISO date of
// generation.
func Filename(def Definition, generatedAt time.Time) string {
	slug := pstrings.Slugify(def.Title)
	if slug == "" {
		slug = "relatorio"
	}
	return fmt.Sprintf("%s-%s.txt", slug, generatedAt.Format("2006-01-02"))
}

func writeEvents(b *strings.Builder, events []event.Event, loc *time.Location) {
	b.WriteString("\nHistórico de eventos:\n")
	if len(events) == 0 {
		b.WriteString("  (nenhum evento registrado)\n")
		return
	}
	for _, e := range events {
		actor := ""
		if e.Member != nil && e.Member.Name != "" {
			actor = " — " + e.Member.Name
		}
		fmt.Fprintf(b, "  %s  [%s] %s%s\n",
			e.CreatedAt.In(loc).Format("2006-01-02 15:04"),
			e.Category, e.Title, actor)
	}
}

func writeRollups(b *strings.Builder, rollups []aggregate.MemberRollup) {
	b.WriteString("\nRanking de membros:\n")
	if len(rollups) == 0 {
		b.WriteString("  (nenhuma atividade registrada)\n")
		return
	}
	for i, r := range rollups {
		name := r.Name
		if name == "" {
			name = r.MemberID.String()
		}
		fmt.Fprintf(b, "  %d. %s — %d eventos (metas concluídas: %d, tarefas concluídas: %d)\n",
			i+1, name, r.Total, r.GoalsCompleted, r.TasksCompleted)
	}
}

func writeWeeks(b *strings.Builder, weeks []aggregate.WeekCount) {
	b.WriteString("\nAtividade semanal:\n")
	if len(weeks) == 0 {
		b.WriteString("  (nenhuma semana com atividade)\n")
		return
	}
	for _, w := range weeks {
		fmt.Fprintf(b, "  %s: %d eventos\n", w.Label, w.Count)
	}
}
