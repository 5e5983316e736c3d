package client

import (
	"context"
	"errors"

	"docquiz/internal/domain"
)

// fakeTransport implements Transport with overridable function fields.
type fakeTransport struct {
	fetchJobStatus  func(ctx context.Context, jobID string) (domain.Job, error)
	listQuestions   func(ctx context.Context, pdfID string) ([]domain.Question, error)
	gradeAnswer     func(ctx context.Context, pdfID, questionID, answer string) (domain.GradeResult, error)
	fetchWrongNotes func(ctx context.Context) (domain.WrongNoteBook, error)
}

var errFakeNotImplemented = errors.New("fake transport: not implemented")

func (f *fakeTransport) FetchJobStatus(ctx context.Context, jobID string) (domain.Job, error) {
	if f.fetchJobStatus == nil {
		return domain.Job{}, errFakeNotImplemented
	}
	return f.fetchJobStatus(ctx, jobID)
}

func (f *fakeTransport) ListQuestions(ctx context.Context, pdfID string) ([]domain.Question, error) {
	if f.listQuestions == nil {
		return nil, errFakeNotImplemented
	}
	return f.listQuestions(ctx, pdfID)
}

func (f *fakeTransport) GradeAnswer(ctx context.Context, pdfID, questionID, answer string) (domain.GradeResult, error) {
	if f.gradeAnswer == nil {
		return domain.GradeResult{}, errFakeNotImplemented
	}
	return f.gradeAnswer(ctx, pdfID, questionID, answer)
}

func (f *fakeTransport) FetchWrongNotes(ctx context.Context) (domain.WrongNoteBook, error) {
	if f.fetchWrongNotes == nil {
		return domain.WrongNoteBook{}, errFakeNotImplemented
	}
	return f.fetchWrongNotes(ctx)
}
