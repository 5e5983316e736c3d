package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"docquiz/internal/domain"
	"docquiz/internal/generator"
	"docquiz/internal/infra/memory"
)

func newGenerationService(llm generator.LLMClient) (*GenerationService, *memory.JobStore, *memory.QuestionStore) {
	jobs := memory.NewJobStore()
	questions := memory.NewQuestionStore()
	svc := NewGenerationService(memory.NewDocumentStore(), jobs, questions, generator.New(llm))
	return svc, jobs, questions
}

func awaitTerminal(t *testing.T, svc *GenerationService, jobID string) domain.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := svc.JobStatus(context.Background(), jobID)
		if err != nil {
			t.Fatalf("job status: %v", err)
		}
		if job.Terminal() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job did not finish in time")
	return domain.Job{}
}

func TestUploadSplitsPages(t *testing.T) {
	svc, _, _ := newGenerationService(generator.NewMockClient())

	receipt, err := svc.Upload(context.Background(), "doc.txt", []byte("page one\fpage two\fpage three"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if receipt.PageCount != 3 {
		t.Fatalf("expected 3 pages, got %d", receipt.PageCount)
	}
	if receipt.Status != "UPLOADED" || !strings.HasPrefix(receipt.PDFID, "pdf-") {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
}

func TestUploadRejectsEmptyFile(t *testing.T) {
	svc, _, _ := newGenerationService(generator.NewMockClient())

	if _, err := svc.Upload(context.Background(), "empty.txt", []byte("   \n  ")); err == nil {
		t.Fatal("expected error for empty upload")
	}
}

func TestGenerationJobCompletes(t *testing.T) {
	svc, _, questions := newGenerationService(generator.NewMockClient())
	ctx := context.Background()

	receipt, err := svc.Upload(ctx, "doc.txt", []byte("Cells divide through mitosis."))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	job, err := svc.StartGeneration(ctx, receipt.PDFID, domain.GenerationOptions{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if job.Status != domain.JobQueued {
		t.Fatalf("expected job created QUEUED, got %s", job.Status)
	}

	final := awaitTerminal(t, svc, job.JobID)
	if final.Status != domain.JobDone {
		t.Fatalf("expected DONE, got %s (error=%+v)", final.Status, final.Error)
	}
	if final.Progress != nil {
		t.Fatalf("expected no progress on DONE job, got %+v", final.Progress)
	}

	set, err := questions.LoadQuestionSet(ctx, receipt.PDFID)
	if err != nil {
		t.Fatalf("load saved set: %v", err)
	}
	if len(set.Questions) == 0 {
		t.Fatal("expected saved questions")
	}
	for _, q := range set.Questions {
		key, ok := set.Answers[q.QuestionID]
		if !ok {
			t.Fatalf("question %s has no answer key", q.QuestionID)
		}
		if q.Type == domain.TypeMCQ && key.Answer != strings.ToUpper(key.Answer) {
			t.Fatalf("MCQ answer label not uppercased: %q", key.Answer)
		}
	}
}

func TestGenerationUnknownDocument(t *testing.T) {
	svc, _, _ := newGenerationService(generator.NewMockClient())

	_, err := svc.StartGeneration(context.Background(), "pdf-missing", domain.GenerationOptions{})
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestGenerationFailsOnLLMError(t *testing.T) {
	svc, _, _ := newGenerationService(failingLLM{})
	ctx := context.Background()

	receipt, err := svc.Upload(ctx, "doc.txt", []byte("Some content."))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	job, err := svc.StartGeneration(ctx, receipt.PDFID, domain.GenerationOptions{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	final := awaitTerminal(t, svc, job.JobID)
	if final.Status != domain.JobFailed {
		t.Fatalf("expected FAILED, got %s", final.Status)
	}
	if final.Error == nil || final.Error.Code != "GENERATION_ERROR" {
		t.Fatalf("expected GENERATION_ERROR, got %+v", final.Error)
	}
}

func TestGenerationTrimsToRequestedCount(t *testing.T) {
	svc, _, questions := newGenerationService(generator.NewMockClient())
	ctx := context.Background()

	receipt, err := svc.Upload(ctx, "doc.txt", []byte("Some content."))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	job, err := svc.StartGeneration(ctx, receipt.PDFID, domain.GenerationOptions{NumQuestions: 2})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	awaitTerminal(t, svc, job.JobID)

	set, err := questions.LoadQuestionSet(ctx, receipt.PDFID)
	if err != nil {
		t.Fatalf("load saved set: %v", err)
	}
	if len(set.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(set.Questions))
	}
}

func TestQuestionsForChunkFrontLoadsRemainder(t *testing.T) {
	opts := normalizeOptions(domain.GenerationOptions{NumQuestions: 7})

	var total int
	for i := 0; i < 3; i++ {
		mcq, saq := questionsForChunk(opts, i, 3)
		total += mcq + saq
	}
	if total != 7 {
		t.Fatalf("expected 7 questions across chunks, got %d", total)
	}

	firstMCQ, firstSAQ := questionsForChunk(opts, 0, 3)
	lastMCQ, lastSAQ := questionsForChunk(opts, 2, 3)
	if firstMCQ+firstSAQ <= lastMCQ+lastSAQ {
		t.Fatalf("expected remainder front-loaded, first=%d last=%d",
			firstMCQ+firstSAQ, lastMCQ+lastSAQ)
	}
}

func TestChunkPagesWholeMode(t *testing.T) {
	pages := []string{"a", "b", "c"}
	chunks := chunkPages(pages, domain.Chunking{Mode: "whole"})
	if len(chunks) != 1 {
		t.Fatalf("expected single chunk, got %d", len(chunks))
	}
	chunks = chunkPages(pages, domain.Chunking{Mode: "chunked", PagesPerChunk: 2})
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
}

type failingLLM struct{}

func (failingLLM) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return "", errors.New("model unavailable")
}
