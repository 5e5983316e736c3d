package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"time"

	"docquiz/internal/domain"
	"docquiz/internal/generator"
)

const (
	defaultNumQuestions  = 10
	defaultMCQRatio      = 0.7
	defaultPagesPerChunk = 10
	linesPerPage         = 40
	jobDeadline          = 15 * time.Minute
)

// DocumentStore persists uploaded source documents.
type DocumentStore interface {
	SaveDocument(ctx context.Context, doc domain.Document) error
	GetDocument(ctx context.Context, pdfID string) (domain.Document, error)
}

// JobStore persists job observations. Updates against a terminal job
// must fail with domain.ErrJobTerminal.
type JobStore interface {
	CreateJob(ctx context.Context, job domain.Job) error
	GetJob(ctx context.Context, jobID string) (domain.Job, error)
	UpdateJob(ctx context.Context, job domain.Job) error
}

// QuestionSaver persists the output of a finished generation run.
type QuestionSaver interface {
	SaveQuestionSet(ctx context.Context, set domain.QuestionSet) error
}

// GenerationService owns the document upload and job lifecycle: a job is
// created QUEUED, a worker goroutine drives it through
// PARSING -> GENERATING -> VERIFYING -> SAVING, and it ends DONE or
// FAILED. Terminal jobs are immutable.
type GenerationService struct {
	docs  DocumentStore
	jobs  JobStore
	saver QuestionSaver
	gen   *generator.Generator
	now   func() time.Time
}

func NewGenerationService(docs DocumentStore, jobs JobStore, saver QuestionSaver, gen *generator.Generator) *GenerationService {
	return &GenerationService{docs: docs, jobs: jobs, saver: saver, gen: gen, now: time.Now}
}

// Upload stores a source document and reports its page count. The
// payload is treated as plain text; pages split on form feeds when
// present, otherwise on a fixed line count.
func (s *GenerationService) Upload(ctx context.Context, name string, content []byte) (domain.UploadReceipt, error) {
	text := strings.TrimSpace(string(content))
	if text == "" {
		return domain.UploadReceipt{}, fmt.Errorf("uploaded file is empty")
	}

	doc := domain.Document{
		PDFID:      newID("pdf"),
		Name:       name,
		Pages:      paginate(text),
		UploadedAt: s.now(),
	}
	if err := s.docs.SaveDocument(ctx, doc); err != nil {
		return domain.UploadReceipt{}, fmt.Errorf("save document: %w", err)
	}
	return domain.UploadReceipt{
		PDFID:     doc.PDFID,
		Status:    "UPLOADED",
		PageCount: len(doc.Pages),
	}, nil
}

// StartGeneration creates a QUEUED job for pdfID and launches its worker.
func (s *GenerationService) StartGeneration(ctx context.Context, pdfID string, opts domain.GenerationOptions) (domain.Job, error) {
	doc, err := s.docs.GetDocument(ctx, pdfID)
	if err != nil {
		return domain.Job{}, err
	}

	opts = normalizeOptions(opts)
	job := domain.Job{
		JobID:  newID("job"),
		PDFID:  pdfID,
		Status: domain.JobQueued,
	}
	if err := s.jobs.CreateJob(ctx, job); err != nil {
		return domain.Job{}, fmt.Errorf("create job: %w", err)
	}

	// The worker outlives the request; it gets its own deadline.
	go s.runJob(job, doc, opts)
	return job, nil
}

// JobStatus returns the latest observation of a job.
func (s *GenerationService) JobStatus(ctx context.Context, jobID string) (domain.Job, error) {
	return s.jobs.GetJob(ctx, jobID)
}

func (s *GenerationService) runJob(job domain.Job, doc domain.Document, opts domain.GenerationOptions) {
	ctx, cancel := context.WithTimeout(context.Background(), jobDeadline)
	defer cancel()

	progress := func(stage domain.JobStage, done, total int) {
		job.Status = domain.JobRunning
		job.Progress = &domain.Progress{Stage: stage, Done: done, Total: total}
		if err := s.jobs.UpdateJob(ctx, job); err != nil {
			log.Printf("job %s: progress update failed: %v", job.JobID, err)
		}
	}
	fail := func(code string, err error) {
		log.Printf("job %s failed (%s): %v", job.JobID, code, err)
		failed := domain.FailJob(job, code, err.Error())
		if err := s.jobs.UpdateJob(ctx, failed); err != nil {
			log.Printf("job %s: failure update failed: %v", job.JobID, err)
		}
	}

	progress(domain.StageParsing, 0, 1)
	chunks := chunkPages(doc.Pages, opts.Chunking)
	if len(chunks) == 0 {
		fail("EMPTY_DOCUMENT", fmt.Errorf("document %s has no usable text", doc.PDFID))
		return
	}
	progress(domain.StageParsing, 1, 1)

	var raw []generator.GeneratedQuestion
	total := len(chunks)
	for i, chunk := range chunks {
		progress(domain.StageGenerating, i, total)

		mcq, saq := questionsForChunk(opts, i, total)
		if mcq+saq == 0 {
			continue
		}
		batch, err := s.gen.GenerateBatch(ctx, chunk, mcq, saq, opts.Difficulty)
		if err != nil {
			fail("GENERATION_ERROR", err)
			return
		}
		raw = append(raw, batch.Questions...)
	}
	progress(domain.StageGenerating, total, total)

	progress(domain.StageVerifying, 0, 1)
	set, err := buildQuestionSet(doc.PDFID, raw, opts.NumQuestions)
	if err != nil {
		fail("VERIFICATION_ERROR", err)
		return
	}
	progress(domain.StageVerifying, 1, 1)

	progress(domain.StageSaving, 0, 1)
	if err := s.saver.SaveQuestionSet(ctx, set); err != nil {
		fail("SAVE_ERROR", err)
		return
	}

	job.Status = domain.JobDone
	job.Progress = nil
	if err := s.jobs.UpdateJob(ctx, job); err != nil {
		log.Printf("job %s: completion update failed: %v", job.JobID, err)
	}
	log.Printf("job %s done: %d questions for %s", job.JobID, len(set.Questions), doc.PDFID)
}

// buildQuestionSet verifies raw model output, assigns IDs and option
// labels, and trims to the requested count.
func buildQuestionSet(pdfID string, raw []generator.GeneratedQuestion, limit int) (domain.QuestionSet, error) {
	set := domain.QuestionSet{
		PDFID:   pdfID,
		Answers: make(map[string]domain.AnswerKey),
	}

	for _, q := range raw {
		if len(set.Questions) >= limit {
			break
		}
		question := domain.Question{
			QuestionID: newID("q"),
			Prompt:     strings.TrimSpace(q.Question),
		}
		answer := strings.TrimSpace(q.Answer)

		switch q.Type {
		case string(domain.TypeMCQ):
			question.Type = domain.TypeMCQ
			question.Options = q.Options
			answer = strings.ToUpper(answer)
		case string(domain.TypeSAQ):
			question.Type = domain.TypeSAQ
		default:
			continue
		}

		set.Questions = append(set.Questions, question)
		set.Answers[question.QuestionID] = domain.AnswerKey{
			Answer:      answer,
			Explanation: strings.TrimSpace(q.Explanation),
		}
	}

	if len(set.Questions) == 0 {
		return domain.QuestionSet{}, fmt.Errorf("no valid questions produced")
	}
	return set, nil
}

func normalizeOptions(opts domain.GenerationOptions) domain.GenerationOptions {
	if opts.NumQuestions <= 0 {
		opts.NumQuestions = defaultNumQuestions
	}
	if opts.TypesRatio.MCQ <= 0 && opts.TypesRatio.SAQ <= 0 {
		opts.TypesRatio = domain.TypesRatio{MCQ: defaultMCQRatio, SAQ: 1 - defaultMCQRatio}
	}
	if opts.Difficulty == "" {
		opts.Difficulty = "mixed"
	}
	if opts.Chunking.Mode == "" {
		opts.Chunking.Mode = "chunked"
	}
	if opts.Chunking.Mode == "chunked" && opts.Chunking.PagesPerChunk <= 0 {
		opts.Chunking.PagesPerChunk = defaultPagesPerChunk
	}
	return opts
}

// questionsForChunk spreads the requested questions across chunks,
// front-loading the remainder so early chunks carry the extras.
func questionsForChunk(opts domain.GenerationOptions, index, chunks int) (mcq, saq int) {
	per := opts.NumQuestions / chunks
	if index < opts.NumQuestions%chunks {
		per++
	}
	ratio := opts.TypesRatio.MCQ
	if ratio <= 0 {
		ratio = defaultMCQRatio
	}
	mcq = int(float64(per)*ratio + 0.5)
	if mcq > per {
		mcq = per
	}
	return mcq, per - mcq
}

func paginate(text string) []string {
	if strings.Contains(text, "\f") {
		var pages []string
		for _, page := range strings.Split(text, "\f") {
			if strings.TrimSpace(page) != "" {
				pages = append(pages, strings.TrimSpace(page))
			}
		}
		return pages
	}

	lines := strings.Split(text, "\n")
	var pages []string
	for start := 0; start < len(lines); start += linesPerPage {
		end := start + linesPerPage
		if end > len(lines) {
			end = len(lines)
		}
		page := strings.TrimSpace(strings.Join(lines[start:end], "\n"))
		if page != "" {
			pages = append(pages, page)
		}
	}
	return pages
}

func chunkPages(pages []string, chunking domain.Chunking) []string {
	if len(pages) == 0 {
		return nil
	}
	if chunking.Mode != "chunked" {
		return []string{strings.Join(pages, "\n\n")}
	}

	per := chunking.PagesPerChunk
	if per <= 0 {
		per = defaultPagesPerChunk
	}
	var chunks []string
	for start := 0; start < len(pages); start += per {
		end := start + per
		if end > len(pages) {
			end = len(pages)
		}
		chunks = append(chunks, strings.Join(pages[start:end], "\n\n"))
	}
	return chunks
}

func newID(prefix string) string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is unrecoverable in practice
		panic(err)
	}
	return prefix + "-" + hex.EncodeToString(buf)
}
