package service

import (
	"fmt"

	"pitlog/internal/event"
	id "pitlog/pkg/domain"
)

// Convenience constructors: one per common domain action. They are pure
// title formatters over the LogEvent primitive and carry no extra invariants;
// titles are deterministic for a given entity name.

// GoalCreated records a new team goal.
func GoalCreated(name string) Params {
	return Params{
		Type:     event.TypeCreation,
		Category: event.CategoryGoal,
		Title:    fmt.Sprintf("Meta criada: %s", name),
	}
}

// GoalCompleted records a goal reaching its target.
func GoalCompleted(name string) Params {
	return Params{
		Type:     event.TypeCompletion,
		Category: event.CategoryGoal,
		Title:    fmt.Sprintf("Meta concluída: %s", name),
	}
}

// TaskCreated records a new board task.
func TaskCreated(name string) Params {
	return Params{
		Type:     event.TypeCreation,
		Category: event.CategoryTask,
		Title:    fmt.Sprintf("Tarefa criada: %s", name),
	}
}

// TaskCompleted records a task moved to done.
func TaskCompleted(name string) Params {
	return Params{
		Type:     event.TypeCompletion,
		Category: event.CategoryTask,
		Title:    fmt.Sprintf("Tarefa concluída: %s", name),
	}
}

// EvidenceUploaded records a new evidence file.
func EvidenceUploaded(name string, attachments []event.Attachment) Params {
	return Params{
		Type:        event.TypeUpload,
		Category:    event.CategoryEvidence,
		Title:       fmt.Sprintf("Evidência adicionada: %s", name),
		Attachments: attachments,
	}
}

// MeetingScheduled records a calendar entry.
func MeetingScheduled(name string) Params {
	return Params{
		Type:     event.TypeCreation,
		Category: event.CategoryMeeting,
		Title:    fmt.Sprintf("Reunião agendada: %s", name),
	}
}

// DecisionMade records a team decision.
func DecisionMade(name string) Params {
	return Params{
		Type:     event.TypeCreation,
		Category: event.CategoryDecision,
		Title:    fmt.Sprintf("Decisão registrada: %s", name),
	}
}

// PrototypeRegistered records a new robot prototype version.
func PrototypeRegistered(name string, meta event.Metadata) Params {
	return Params{
		Type:     event.TypeCreation,
		Category: event.CategoryPrototype,
		Title:    fmt.Sprintf("Protótipo registrado: %s", name),
		Metadata: meta,
	}
}

// TestRun records a robot test, flagging success through metadata so the
// evolution extractor can spot failures.
func TestRun(name string, success bool) Params {
	return Params{
		Type:     event.TypeCreation,
		Category: event.CategoryTest,
		Title:    fmt.Sprintf("Teste realizado: %s", name),
		Metadata: event.Metadata{"success": success},
	}
}

// IterationLogged records an improvement linked to a prior event.
func IterationLogged(name string, relatedTo id.EventID) Params {
	return Params{
		Type:           event.TypeIteration,
		Category:       event.CategoryIteration,
		Title:          fmt.Sprintf("Iteração registrada: %s", name),
		RelatedEventID: relatedTo,
	}
}

// BrainstormNoteAdded records a canvas note.
func BrainstormNoteAdded(name string) Params {
	return Params{
		Type:     event.TypeCreation,
		Category: event.CategoryBrainstorming,
		Title:    fmt.Sprintf("Ideia adicionada: %s", name),
	}
}
