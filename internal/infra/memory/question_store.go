package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"docquiz/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches question sets from a backing store (Postgres,
// another service, a test map).
type QuestionLoader interface {
	LoadQuestionSet(ctx context.Context, pdfID string) (domain.QuestionSet, error)
}

// QuestionRepository caches question sets with TTL to avoid repeated
// backing-store hits while a quiz is in progress.
type QuestionRepository struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedSet
}

type cachedSet struct {
	set       domain.QuestionSet
	expiresAt time.Time
}

func NewQuestionRepository(loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedSet),
	}
}

func (r *QuestionRepository) GetQuestionSet(ctx context.Context, pdfID string) (domain.QuestionSet, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[pdfID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.set, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(pdfID, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[pdfID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.set, nil
		}
		r.mu.RUnlock()

		set, err := r.loader.LoadQuestionSet(ctx, pdfID)
		if err != nil {
			return domain.QuestionSet{}, err
		}

		r.mu.Lock()
		r.cache[pdfID] = cachedSet{
			set:       set,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return set, nil
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return result.(domain.QuestionSet), nil
}

// Invalidate drops the cached entry for pdfID, forcing a reload.
func (r *QuestionRepository) Invalidate(pdfID string) {
	r.mu.Lock()
	delete(r.cache, pdfID)
	r.mu.Unlock()
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// QuestionStore is a writable in-memory backing store. It serves as
// both the SAVING stage's sink and a QuestionLoader for the cache when
// no Postgres is configured.
type QuestionStore struct {
	mu   sync.RWMutex
	sets map[string]domain.QuestionSet
}

func NewQuestionStore() *QuestionStore {
	return &QuestionStore{sets: make(map[string]domain.QuestionSet)}
}

func (s *QuestionStore) SaveQuestionSet(_ context.Context, set domain.QuestionSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets[set.PDFID] = set
	return nil
}

func (s *QuestionStore) LoadQuestionSet(_ context.Context, pdfID string) (domain.QuestionSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.sets[pdfID]
	if !ok {
		return domain.QuestionSet{}, domain.ErrQuestionSetNotFound
	}
	return set, nil
}
