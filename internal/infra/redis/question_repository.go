package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"docquiz/internal/domain"
	"docquiz/internal/infra/memory"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionRepository caches question sets in Redis as JSON blobs and
// falls back to a loader on cache miss.
// Sets are stored as: SET docquiz:questions:{pdfID} {json} EX {ttl}
type QuestionRepository struct {
	client *redis.Client
	loader memory.QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionRepository(client *redis.Client, loader memory.QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) GetQuestionSet(ctx context.Context, pdfID string) (domain.QuestionSet, error) {
	key := r.key(pdfID)

	raw, err := r.client.Get(ctx, key).Result()
	if err == nil {
		if set, decErr := decodeSet(raw); decErr == nil {
			return set, nil
		}
		// corrupted entry, drop it and reload
		_ = r.client.Del(ctx, key).Err()
	}

	result, err, _ := r.sf.Do(pdfID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		raw, err := r.client.Get(ctx, key).Result()
		if err == nil {
			if set, decErr := decodeSet(raw); decErr == nil {
				return set, nil
			}
		}

		set, err := r.loader.LoadQuestionSet(ctx, pdfID)
		if err != nil {
			return domain.QuestionSet{}, err
		}

		payload, err := json.Marshal(set)
		if err != nil {
			return domain.QuestionSet{}, fmt.Errorf("encode question set: %w", err)
		}
		_ = r.client.Set(ctx, key, payload, r.ttlWithJitter()).Err()

		return set, nil
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return result.(domain.QuestionSet), nil
}

// Invalidate drops the cached entry for pdfID, forcing a reload.
func (r *QuestionRepository) Invalidate(ctx context.Context, pdfID string) {
	_ = r.client.Del(ctx, r.key(pdfID)).Err()
}

func (r *QuestionRepository) key(pdfID string) string {
	return "docquiz:questions:" + pdfID
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

func decodeSet(raw string) (domain.QuestionSet, error) {
	var set domain.QuestionSet
	if err := json.Unmarshal([]byte(raw), &set); err != nil {
		return domain.QuestionSet{}, err
	}
	return set, nil
}
