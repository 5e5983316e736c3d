package domain

import "errors"

var (
	// ErrDocumentNotFound is returned when a pdf_id does not resolve to an upload.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrJobNotFound is returned when a polled job ID is unknown.
	ErrJobNotFound = errors.New("job not found")
	// ErrQuestionSetNotFound indicates no generated questions exist for a document.
	ErrQuestionSetNotFound = errors.New("question set not found")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrJobTerminal is returned on attempts to mutate a DONE or FAILED job.
	ErrJobTerminal = errors.New("job already terminal")
	// ErrNoCurrentQuestion is returned when an answer is submitted with no
	// loaded session or an empty question list.
	ErrNoCurrentQuestion = errors.New("no current question")
	// ErrEmptyAnswer rejects empty or whitespace-only answers.
	ErrEmptyAnswer = errors.New("answer is empty")
)

// JobFailedError is the terminal error of a FAILED generation job.
type JobFailedError struct {
	Code    string
	Message string
}

func (e *JobFailedError) Error() string {
	if e.Message == "" {
		return "job failed"
	}
	return e.Message
}

// NewJobFailedError builds the error for a FAILED job observation.
func NewJobFailedError(job Job) *JobFailedError {
	if job.Error == nil {
		return &JobFailedError{Message: "job failed"}
	}
	return &JobFailedError{Code: job.Error.Code, Message: job.Error.Message}
}

// FailJob returns the terminal FAILED copy of a job.
func FailJob(job Job, code, message string) Job {
	job.Status = JobFailed
	job.Progress = nil
	job.Error = &JobError{Code: code, Message: message}
	return job
}
