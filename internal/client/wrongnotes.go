package client

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"docquiz/internal/domain"
)

// WrongNoteView holds the latest fetched snapshot of the missed-items
// ledger and computes its two orderings on demand. The snapshot itself
// is never mutated; each sort works on a fresh copy.
type WrongNoteView struct {
	transport Transport

	mu    sync.RWMutex
	items []domain.WrongNoteItem
	total int
}

func NewWrongNoteView(transport Transport) *WrongNoteView {
	return &WrongNoteView{transport: transport}
}

// Load fetches the ledger and replaces the stored snapshot.
func (v *WrongNoteView) Load(ctx context.Context) error {
	book, err := v.transport.FetchWrongNotes(ctx)
	if err != nil {
		return fmt.Errorf("load wrong notes: %w", err)
	}
	v.mu.Lock()
	v.items = book.Items
	v.total = book.Total
	v.mu.Unlock()
	return nil
}

// Items returns a copy of the raw, unsorted snapshot.
func (v *WrongNoteView) Items() []domain.WrongNoteItem {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.copyLocked()
}

// Total returns the ledger size reported by the server.
func (v *WrongNoteView) Total() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.total
}

// SortedByMissCount orders items by wrong count descending; ties keep
// their original relative order.
func (v *WrongNoteView) SortedByMissCount() []domain.WrongNoteItem {
	v.mu.RLock()
	items := v.copyLocked()
	v.mu.RUnlock()

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].WrongCount > items[j].WrongCount
	})
	return items
}

// SortedByRecency orders items by last-missed time descending; ties keep
// their original relative order.
func (v *WrongNoteView) SortedByRecency() []domain.WrongNoteItem {
	v.mu.RLock()
	items := v.copyLocked()
	v.mu.RUnlock()

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].LastWrongAt.After(items[j].LastWrongAt)
	})
	return items
}

func (v *WrongNoteView) copyLocked() []domain.WrongNoteItem {
	out := make([]domain.WrongNoteItem, len(v.items))
	copy(out, v.items)
	return out
}
