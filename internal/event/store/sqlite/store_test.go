package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"pitlog/internal/event"
	id "pitlog/pkg/domain"
)

// The sqlite store backs dev deployments; round-trip fidelity of the JSON
// columns and ordering semantics are covered here against a real file.
type SqliteStoreSuite struct {
	suite.Suite
	store *Store
}

func TestSqliteStoreSuite(t *testing.T) {
	suite.Run(t, new(SqliteStoreSuite))
}

func (s *SqliteStoreSuite) SetupTest() {
	store, err := Open(context.Background(), filepath.Join(s.T().TempDir(), "pitlog.db"))
	s.Require().NoError(err)
	s.store = store
	s.T().Cleanup(func() { _ = store.Close() })
}

func (s *SqliteStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	memberID := id.MemberID(uuid.New())

	original := event.Event{
		Type:        event.TypeUpload,
		Category:    event.CategoryEvidence,
		Title:       "Evidência adicionada: teste de tração",
		Description: "vídeo do teste",
		Metadata:    event.Metadata{"section": "teste", "success": true},
		MemberID:    memberID,
		Member:      &event.Member{Name: "Bruno", AvatarURL: "https://cdn/b.png"},
		Attachments: []event.Attachment{{Name: "tracao.mp4", URL: "https://cdn/t.mp4", Size: 2048}},
	}

	stored, err := s.store.Append(ctx, original)
	s.Require().NoError(err)
	s.False(stored.ID.IsNil())

	events, err := s.store.ListAll(ctx)
	s.Require().NoError(err)
	s.Require().Len(events, 1)

	got := events[0]
	s.Equal(stored.ID, got.ID)
	s.Equal(original.Title, got.Title)
	s.Equal(memberID, got.MemberID)
	s.Require().NotNil(got.Member)
	s.Equal("Bruno", got.Member.Name)
	s.Equal("teste", got.Metadata.String("section"))
	s.True(got.Metadata.Bool("success"))
	s.Require().Len(got.Attachments, 1)
	s.Equal(int64(2048), got.Attachments[0].Size)
	s.Equal(stored.CreatedAt.UnixMicro(), got.CreatedAt.UnixMicro())
}

func (s *SqliteStoreSuite) TestOrdering() {
	ctx := context.Background()
	for _, title := range []string{"first", "second", "third"} {
		_, err := s.store.Append(ctx, event.Event{Title: title})
		s.Require().NoError(err)
	}

	ascending, err := s.store.ListAll(ctx)
	s.Require().NoError(err)
	s.Require().Len(ascending, 3)
	s.Equal("first", ascending[0].Title)
	s.True(ascending[0].CreatedAt.Before(ascending[2].CreatedAt))

	recent, err := s.store.ListRecent(ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(recent, 2)
	s.Equal("third", recent[0].Title)
}

func (s *SqliteStoreSuite) TestListByMember() {
	ctx := context.Background()
	alice := id.MemberID(uuid.New())

	_, err := s.store.Append(ctx, event.Event{Title: "mine", MemberID: alice})
	s.Require().NoError(err)
	_, err = s.store.Append(ctx, event.Event{Title: "system"})
	s.Require().NoError(err)

	events, err := s.store.ListByMember(ctx, alice)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal("mine", events[0].Title)
}
