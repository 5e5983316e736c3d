package memory

import (
	"context"
	"sync"

	"docquiz/internal/domain"
)

// WrongNoteStore keeps the missed-items ledger in memory. Items are
// listed in first-miss order; clients apply their own sort views.
type WrongNoteStore struct {
	mu    sync.RWMutex
	items map[string]*domain.WrongNoteItem
	order []string
}

func NewWrongNoteStore() *WrongNoteStore {
	return &WrongNoteStore{items: make(map[string]*domain.WrongNoteItem)}
}

func (s *WrongNoteStore) RecordMiss(_ context.Context, item domain.WrongNoteItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.items[item.QuestionID]; ok {
		existing.WrongCount++
		existing.LastUserAnswer = item.LastUserAnswer
		existing.LastWrongAt = item.LastWrongAt
		return nil
	}

	item.WrongCount = 1
	s.items[item.QuestionID] = &item
	s.order = append(s.order, item.QuestionID)
	return nil
}

func (s *WrongNoteStore) ListWrongNotes(_ context.Context) (domain.WrongNoteBook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.WrongNoteItem, 0, len(s.order))
	for _, id := range s.order {
		items = append(items, *s.items[id])
	}
	return domain.WrongNoteBook{Items: items, Total: len(items)}, nil
}
