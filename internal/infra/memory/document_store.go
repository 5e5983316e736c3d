package memory

import (
	"context"
	"sync"

	"docquiz/internal/domain"
)

// DocumentStore keeps uploaded documents in memory.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]domain.Document
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string]domain.Document)}
}

func (s *DocumentStore) SaveDocument(_ context.Context, doc domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.PDFID] = doc
	return nil
}

func (s *DocumentStore) GetDocument(_ context.Context, pdfID string) (domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[pdfID]
	if !ok {
		return domain.Document{}, domain.ErrDocumentNotFound
	}
	return doc, nil
}
