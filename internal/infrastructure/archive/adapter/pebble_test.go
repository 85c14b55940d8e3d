package adapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-parley/internal/infrastructure/archive/port"
	discussion "go-parley/internal/pkg/discussion/domain"
)

func openStore(t *testing.T) *PebbleStore {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndGetRoundTrip(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	rec := port.Record{
		DiscussionID: "d1",
		Room:         "ethics of automation",
		EndedAt:      time.Now().UTC().Truncate(time.Second),
		Participants: []string{"amy", "bob"},
		Messages: []discussion.Message{
			{ID: "1", Kind: discussion.KindChat, Author: "bob", Body: "opening claim"},
		},
	}
	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.Get(ctx, "d1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Room != rec.Room || len(got.Messages) != 1 || got.Messages[0].Body != "opening claim" {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestGetMissReturnsErrNotFound(t *testing.T) {
	s := openStore(t)
	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, port.ErrNotFound) {
		t.Fatalf("expected port.ErrNotFound, got %v", err)
	}
}

func TestSaveOverwrites(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	_ = s.Save(ctx, port.Record{DiscussionID: "d1", Room: "first"})
	_ = s.Save(ctx, port.Record{DiscussionID: "d1", Room: "second"})

	got, err := s.Get(ctx, "d1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Room != "second" {
		t.Errorf("room = %q, want second", got.Room)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("list has %d records, want 1", len(list))
	}
}

func TestListNewestFirst(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "mid", "new"} {
		rec := port.Record{DiscussionID: id, EndedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := s.Save(ctx, rec); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("list has %d records, want 3", len(list))
	}
	if list[0].DiscussionID != "new" || list[2].DiscussionID != "old" {
		t.Errorf("unexpected order: %s, %s, %s", list[0].DiscussionID, list[1].DiscussionID, list[2].DiscussionID)
	}
}

func TestSaveRequiresDiscussionID(t *testing.T) {
	s := openStore(t)
	if err := s.Save(context.Background(), port.Record{}); err == nil {
		t.Fatal("expected an error for an empty discussion id")
	}
}
