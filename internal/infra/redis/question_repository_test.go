package redis

import (
	"context"
	"testing"
	"time"

	"docquiz/internal/domain"
	"docquiz/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestQuestionRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	store := memory.NewQuestionStore()
	if err := store.SaveQuestionSet(context.Background(), sampleSet()); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	loader := &countingLoader{QuestionLoader: store}
	repo := NewQuestionRepository(client, loader, time.Minute)

	set, err := repo.GetQuestionSet(context.Background(), "pdf-1")
	if err != nil {
		t.Fatalf("get question set: %v", err)
	}
	if len(set.Questions) != 1 || set.Answers["q1"].Answer != "B" {
		t.Fatalf("unexpected set from loader: %+v", set)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}

	// Second call should hit cache, loader not incremented.
	set, err = repo.GetQuestionSet(context.Background(), "pdf-1")
	if err != nil {
		t.Fatalf("get question set cached: %v", err)
	}
	if set.Answers["q1"].Answer != "B" {
		t.Fatalf("cached set lost answers: %+v", set)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
}

func TestQuestionRepositoryInvalidate(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	store := memory.NewQuestionStore()
	_ = store.SaveQuestionSet(context.Background(), sampleSet())
	loader := &countingLoader{QuestionLoader: store}
	repo := NewQuestionRepository(client, loader, time.Minute)

	_, _ = repo.GetQuestionSet(context.Background(), "pdf-1")
	repo.Invalidate(context.Background(), "pdf-1")
	_, _ = repo.GetQuestionSet(context.Background(), "pdf-1")
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls=%d", loader.calls)
	}
}

func TestQuestionRepositoryPropagatesLoaderError(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	repo := NewQuestionRepository(newClient(mr), memory.NewQuestionStore(), time.Minute)
	if _, err := repo.GetQuestionSet(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for unknown document")
	}
}

type countingLoader struct {
	memory.QuestionLoader
	calls int
}

func (l *countingLoader) LoadQuestionSet(ctx context.Context, pdfID string) (domain.QuestionSet, error) {
	l.calls++
	return l.QuestionLoader.LoadQuestionSet(ctx, pdfID)
}

func sampleSet() domain.QuestionSet {
	return domain.QuestionSet{
		PDFID: "pdf-1",
		Questions: []domain.Question{
			{
				QuestionID: "q1",
				Type:       domain.TypeMCQ,
				Prompt:     "What is 2 + 2?",
				Options:    []string{"3", "4", "5"},
			},
		},
		Answers: map[string]domain.AnswerKey{
			"q1": {Answer: "B", Explanation: "basic arithmetic"},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
