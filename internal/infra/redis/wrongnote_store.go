package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"docquiz/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	wrongCountsKey = "docquiz:wrongnotes:counts"
	wrongItemsKey  = "docquiz:wrongnotes:items"
	wrongOrderKey  = "docquiz:wrongnotes:order"
)

// WrongNoteStore keeps the missed-items ledger in Redis.
// Counts are stored as: HINCRBY docquiz:wrongnotes:counts {questionID} 1
// Items are stored as:  HSET    docquiz:wrongnotes:items  {questionID} {json}
// First-miss order is:  RPUSH   docquiz:wrongnotes:order  {questionID}
type WrongNoteStore struct {
	client *redis.Client
}

func NewWrongNoteStore(client *redis.Client) *WrongNoteStore {
	return &WrongNoteStore{client: client}
}

func (s *WrongNoteStore) RecordMiss(ctx context.Context, item domain.WrongNoteItem) error {
	count, err := s.client.HIncrBy(ctx, wrongCountsKey, item.QuestionID, 1).Result()
	if err != nil {
		return fmt.Errorf("increment wrong count: %w", err)
	}
	if count == 1 {
		if err := s.client.RPush(ctx, wrongOrderKey, item.QuestionID).Err(); err != nil {
			return fmt.Errorf("append wrong-note order: %w", err)
		}
	}

	item.WrongCount = int(count)
	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode wrong note: %w", err)
	}
	if err := s.client.HSet(ctx, wrongItemsKey, item.QuestionID, payload).Err(); err != nil {
		return fmt.Errorf("store wrong note: %w", err)
	}
	return nil
}

func (s *WrongNoteStore) ListWrongNotes(ctx context.Context) (domain.WrongNoteBook, error) {
	order, err := s.client.LRange(ctx, wrongOrderKey, 0, -1).Result()
	if err != nil {
		return domain.WrongNoteBook{}, fmt.Errorf("list wrong-note order: %w", err)
	}
	if len(order) == 0 {
		return domain.WrongNoteBook{Items: []domain.WrongNoteItem{}}, nil
	}

	raw, err := s.client.HGetAll(ctx, wrongItemsKey).Result()
	if err != nil {
		return domain.WrongNoteBook{}, fmt.Errorf("load wrong notes: %w", err)
	}
	counts, err := s.client.HGetAll(ctx, wrongCountsKey).Result()
	if err != nil {
		return domain.WrongNoteBook{}, fmt.Errorf("load wrong counts: %w", err)
	}

	items := make([]domain.WrongNoteItem, 0, len(order))
	for _, id := range order {
		payload, ok := raw[id]
		if !ok {
			continue
		}
		var item domain.WrongNoteItem
		if err := json.Unmarshal([]byte(payload), &item); err != nil {
			return domain.WrongNoteBook{}, fmt.Errorf("decode wrong note %s: %w", id, err)
		}
		// counts hash is the source of truth, item JSON may lag
		if c, err := strconv.Atoi(counts[id]); err == nil && c > item.WrongCount {
			item.WrongCount = c
		}
		items = append(items, item)
	}
	return domain.WrongNoteBook{Items: items, Total: len(items)}, nil
}
