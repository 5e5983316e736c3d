package domain

import (
	"fmt"
	"time"
)

// JobStatus tracks the lifecycle of a question-generation job.
type JobStatus string

const (
	JobQueued  JobStatus = "QUEUED"
	JobRunning JobStatus = "RUNNING"
	JobDone    JobStatus = "DONE"
	JobFailed  JobStatus = "FAILED"
)

// Terminal reports whether no further status transitions can occur.
func (s JobStatus) Terminal() bool {
	return s == JobDone || s == JobFailed
}

// JobStage names the pipeline phase a running job is in.
type JobStage string

const (
	StageParsing    JobStage = "PARSING"
	StageGenerating JobStage = "GENERATING"
	StageVerifying  JobStage = "VERIFYING"
	StageSaving     JobStage = "SAVING"
)

// Progress reports how far a running job has advanced through its stage.
type Progress struct {
	Stage JobStage `json:"stage"`
	Done  int      `json:"done"`
	Total int      `json:"total"`
}

// Percent returns the stage completion as a rounded 0-100 value.
func (p Progress) Percent() int {
	if p.Total <= 0 {
		return 0
	}
	return int(float64(p.Done)/float64(p.Total)*100 + 0.5)
}

// JobError carries the server-supplied failure reason for a FAILED job.
type JobError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Job is one observation of a server-tracked generation job.
// Progress is present only while the job runs; Error only when it failed.
type Job struct {
	JobID    string    `json:"job_id"`
	PDFID    string    `json:"pdf_id,omitempty"`
	Status   JobStatus `json:"status"`
	Progress *Progress `json:"progress,omitempty"`
	Error    *JobError `json:"error,omitempty"`
}

// Terminal reports whether the job reached DONE or FAILED.
func (j Job) Terminal() bool {
	return j.Status.Terminal()
}

// QuestionType distinguishes multiple-choice from short-answer questions.
type QuestionType string

const (
	TypeMCQ QuestionType = "MCQ"
	TypeSAQ QuestionType = "SAQ"
)

// Question is one generated question as exposed to clients.
// Options is present only for MCQ and each option is addressed by the
// label derived from its position (0 -> "A", 1 -> "B", ...).
type Question struct {
	QuestionID string       `json:"question_id"`
	Type       QuestionType `json:"type"`
	Prompt     string       `json:"question"`
	Options    []string     `json:"options,omitempty"`
	Source     string       `json:"source,omitempty"`
}

// OptionLabel maps a zero-based option position to its display label.
func OptionLabel(i int) string {
	if i < 0 {
		return ""
	}
	if i < 26 {
		return string(rune('A' + i))
	}
	return fmt.Sprintf("%c%c", 'A'+i/26-1, 'A'+i%26)
}

// AnswerKey holds the grading material for a question. For MCQ the answer
// is the correct option's label; for SAQ it is the model answer text.
type AnswerKey struct {
	Answer      string `json:"answer"`
	Explanation string `json:"explanation"`
}

// QuestionSet is the persisted output of one generation job: the public
// questions plus the answer keys the grader needs.
type QuestionSet struct {
	PDFID     string               `json:"pdf_id"`
	Questions []Question           `json:"questions"`
	Answers   map[string]AnswerKey `json:"answers"`
}

// GradeResult is the immutable outcome of grading one answer.
type GradeResult struct {
	QuestionID    string       `json:"question_id"`
	Type          QuestionType `json:"type"`
	IsCorrect     bool         `json:"is_correct"`
	Score         int          `json:"score"`
	UserAnswer    string       `json:"user_answer"`
	CorrectAnswer string       `json:"correct_answer"`
	Feedback      string       `json:"feedback"`
	GradedAt      time.Time    `json:"graded_at"`
}

// WrongNoteItem is one entry of the missed-items ledger.
type WrongNoteItem struct {
	QuestionID     string    `json:"question_id"`
	Prompt         string    `json:"question"`
	LastUserAnswer string    `json:"last_user_answer"`
	CorrectAnswer  string    `json:"correct_answer"`
	Explanation    string    `json:"explanation"`
	WrongCount     int       `json:"wrong_count"`
	LastWrongAt    time.Time `json:"last_wrong_at"`
}

// WrongNoteBook is the fetched ledger snapshot.
type WrongNoteBook struct {
	UserID string          `json:"user_id,omitempty"`
	Items  []WrongNoteItem `json:"items"`
	Total  int             `json:"total"`
}

// Document is an uploaded source document, already split into pages.
type Document struct {
	PDFID      string    `json:"pdf_id"`
	Name       string    `json:"name"`
	Pages      []string  `json:"pages"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// UploadReceipt acknowledges a stored document.
type UploadReceipt struct {
	PDFID     string `json:"pdf_id"`
	Status    string `json:"status"`
	PageCount int    `json:"page_count"`
}

// TypesRatio splits requested questions between MCQ and SAQ.
type TypesRatio struct {
	MCQ float64 `json:"MCQ"`
	SAQ float64 `json:"SAQ"`
}

// Chunking controls how the document is fed to the generator.
type Chunking struct {
	Mode          string `json:"mode"` // "whole" or "chunked"
	PagesPerChunk int    `json:"pages_per_chunk,omitempty"`
}

// GenerationOptions parameterize a generation job.
type GenerationOptions struct {
	NumQuestions int        `json:"num_questions"`
	Difficulty   string     `json:"difficulty"`
	TypesRatio   TypesRatio `json:"types_ratio"`
	Chunking     Chunking   `json:"chunking"`
}
