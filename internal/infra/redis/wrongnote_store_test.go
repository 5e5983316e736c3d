package redis

import (
	"context"
	"testing"
	"time"

	"docquiz/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
)

func TestWrongNoteStoreUpsertsMisses(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewWrongNoteStore(newClient(mr))
	ctx := context.Background()

	first := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	miss := domain.WrongNoteItem{
		QuestionID:     "q1",
		Prompt:         "What is 2 + 2?",
		LastUserAnswer: "3",
		CorrectAnswer:  "B",
		LastWrongAt:    first,
	}
	if err := store.RecordMiss(ctx, miss); err != nil {
		t.Fatalf("record: %v", err)
	}

	miss.LastUserAnswer = "5"
	miss.LastWrongAt = first.Add(time.Hour)
	if err := store.RecordMiss(ctx, miss); err != nil {
		t.Fatalf("record again: %v", err)
	}

	book, err := store.ListWrongNotes(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if book.Total != 1 {
		t.Fatalf("expected one ledger entry, got %d", book.Total)
	}
	item := book.Items[0]
	if item.WrongCount != 2 {
		t.Fatalf("expected wrong count 2, got %d", item.WrongCount)
	}
	if item.LastUserAnswer != "5" || !item.LastWrongAt.Equal(first.Add(time.Hour)) {
		t.Fatalf("expected latest miss recorded, got %+v", item)
	}
}

func TestWrongNoteStoreKeepsFirstMissOrder(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewWrongNoteStore(newClient(mr))
	ctx := context.Background()

	now := time.Now().UTC()
	for _, id := range []string{"q3", "q1", "q2"} {
		if err := store.RecordMiss(ctx, domain.WrongNoteItem{QuestionID: id, LastWrongAt: now}); err != nil {
			t.Fatalf("record %s: %v", id, err)
		}
	}

	book, err := store.ListWrongNotes(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(book.Items) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(book.Items))
	}
	if book.Items[0].QuestionID != "q3" || book.Items[1].QuestionID != "q1" || book.Items[2].QuestionID != "q2" {
		t.Fatalf("expected first-miss order, got %v %v %v",
			book.Items[0].QuestionID, book.Items[1].QuestionID, book.Items[2].QuestionID)
	}
}

func TestWrongNoteStoreEmptyLedger(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewWrongNoteStore(newClient(mr))
	book, err := store.ListWrongNotes(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if book.Total != 0 || len(book.Items) != 0 {
		t.Fatalf("expected empty ledger, got %+v", book)
	}
}
