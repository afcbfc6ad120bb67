package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pitlog/internal/event"
	id "pitlog/pkg/domain"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mock
}

func TestAppend(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts and notifies", func(t *testing.T) {
		store, mock := newMockStore(t)
		assigned := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)

		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO events")).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(assigned))
		mock.ExpectExec(regexp.QuoteMeta("pg_notify")).
			WillReturnResult(sqlmock.NewResult(0, 1))

		stored, err := store.Append(ctx, event.Event{
			Type:     event.TypeCompletion,
			Category: event.CategoryTask,
			Title:    "Tarefa concluída: montar chassi",
			MemberID: id.MemberID(uuid.New()),
			Metadata: event.Metadata{"section": "prototipo"},
		})
		require.NoError(t, err)
		assert.False(t, stored.ID.IsNil())
		assert.Equal(t, assigned, stored.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insert failure surfaces wrapped error", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO events")).
			WillReturnError(assert.AnError)

		_, err := store.Append(ctx, event.Event{Title: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "insert event")
	})
}

func eventColumns() []string {
	return []string{
		"id", "event_type", "event_category", "title", "description",
		"metadata", "member_id", "member_name", "member_avatar",
		"related_event_id", "attachments", "created_at",
	}
}

func TestListAll(t *testing.T) {
	ctx := context.Background()

	t.Run("scans rows in ascending order", func(t *testing.T) {
		store, mock := newMockStore(t)
		memberID := uuid.New()
		rows := sqlmock.NewRows(eventColumns()).
			AddRow(uuid.New().String(), "creation", "goal", "Meta criada", "",
				[]byte(nil), memberID.String(), "Ana", "", nil, []byte(nil),
				time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)).
			AddRow(uuid.New().String(), "completion", "task", "Tarefa concluída", "",
				[]byte(`{"success":true}`), nil, "", "", nil, []byte(nil),
				time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC))

		mock.ExpectQuery("SELECT (.+) FROM events ORDER BY created_at ASC").
			WillReturnRows(rows)

		events, err := store.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, events, 2)

		assert.Equal(t, event.CategoryGoal, events[0].Category)
		assert.Equal(t, id.MemberID(memberID), events[0].MemberID)
		require.NotNil(t, events[0].Member)
		assert.Equal(t, "Ana", events[0].Member.Name)

		assert.False(t, events[1].HasActor())
		assert.True(t, events[1].Metadata.Bool("success"))
	})

	t.Run("empty table returns no events", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery("SELECT (.+) FROM events ORDER BY created_at ASC").
			WillReturnRows(sqlmock.NewRows(eventColumns()))

		events, err := store.ListAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, events)
	})
}

func TestListRecent(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM events ORDER BY created_at DESC LIMIT").
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows(eventColumns()).
			AddRow(uuid.New().String(), "upload", "evidence", "Evidência adicionada", "",
				[]byte(nil), nil, "", "", nil, []byte(nil),
				time.Date(2026, 4, 3, 10, 0, 0, 0, time.UTC)))

	events, err := store.ListRecent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, event.TypeUpload, events[0].Type)
}

func TestListByMember(t *testing.T) {
	store, mock := newMockStore(t)
	memberID := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM events WHERE member_id").
		WithArgs(memberID).
		WillReturnRows(sqlmock.NewRows(eventColumns()))

	events, err := store.ListByMember(context.Background(), id.MemberID(memberID))
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.NoError(t, mock.ExpectationsWereMet())
}
