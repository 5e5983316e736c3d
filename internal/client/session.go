package client

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"docquiz/internal/domain"
)

// QuizSession owns the ordered question list for one document, the
// cursor over it, and the per-question grade results. All aggregate
// values are derived from the result map on every read, never cached.
//
// The session assumes a single logical caller: concurrent SubmitAnswer
// calls for the same question are last-writer-wins on the stored result.
type QuizSession struct {
	transport Transport

	mu        sync.RWMutex
	pdfID     string
	questions []domain.Question
	cursor    int
	results   map[string]domain.GradeResult
}

func NewQuizSession(transport Transport) *QuizSession {
	return &QuizSession{
		transport: transport,
		results:   make(map[string]domain.GradeResult),
	}
}

// Load fetches the question sequence for pdfID, resets the cursor to 0
// and clears all grade results. An empty sequence is a valid outcome;
// callers distinguish it from failure by checking Len after a nil error.
func (s *QuizSession) Load(ctx context.Context, pdfID string) error {
	questions, err := s.transport.ListQuestions(ctx, pdfID)
	if err != nil {
		return fmt.Errorf("load questions: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pdfID = pdfID
	s.questions = questions
	s.cursor = 0
	s.results = make(map[string]domain.GradeResult)
	return nil
}

// Len returns the number of loaded questions.
func (s *QuizSession) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.questions)
}

// CurrentIndex returns the cursor position.
func (s *QuizSession) CurrentIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursor
}

// CurrentQuestion returns the question at the cursor, or false when the
// sequence is empty.
func (s *QuizSession) CurrentQuestion() (domain.Question, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.questions) == 0 {
		return domain.Question{}, false
	}
	return s.questions[s.cursor], true
}

// CurrentResult returns the stored grade result for the current
// question, if one exists.
func (s *QuizSession) CurrentResult() (domain.GradeResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.questions) == 0 {
		return domain.GradeResult{}, false
	}
	result, ok := s.results[s.questions[s.cursor].QuestionID]
	return result, ok
}

// Result returns the stored grade result for a specific question.
func (s *QuizSession) Result(questionID string) (domain.GradeResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[questionID]
	return result, ok
}

// Questions returns a copy of the loaded question sequence.
func (s *QuizSession) Questions() []domain.Question {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Question, len(s.questions))
	copy(out, s.questions)
	return out
}

// SubmitAnswer grades the current question. The result is stored keyed
// by question ID; submitting again for the same question overwrites the
// prior result. On failure the session state is unchanged.
func (s *QuizSession) SubmitAnswer(ctx context.Context, answer string) (domain.GradeResult, error) {
	if strings.TrimSpace(answer) == "" {
		return domain.GradeResult{}, domain.ErrEmptyAnswer
	}

	s.mu.RLock()
	if len(s.questions) == 0 {
		s.mu.RUnlock()
		return domain.GradeResult{}, domain.ErrNoCurrentQuestion
	}
	pdfID := s.pdfID
	question := s.questions[s.cursor]
	s.mu.RUnlock()

	result, err := s.transport.GradeAnswer(ctx, pdfID, question.QuestionID, answer)
	if err != nil {
		return domain.GradeResult{}, fmt.Errorf("grade answer: %w", err)
	}

	s.mu.Lock()
	s.results[question.QuestionID] = result
	s.mu.Unlock()
	return result, nil
}

// Next moves the cursor forward by one, clamped to the last question.
func (s *QuizSession) Next() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor < len(s.questions)-1 {
		s.cursor++
	}
}

// Prev moves the cursor back by one, clamped to the first question.
func (s *QuizSession) Prev() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor > 0 {
		s.cursor--
	}
}

// GoTo moves the cursor to index if it is in range; otherwise a no-op.
func (s *QuizSession) GoTo(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index >= 0 && index < len(s.questions) {
		s.cursor = index
	}
}

// AnsweredCount is the number of questions with a stored result.
func (s *QuizSession) AnsweredCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}

// CorrectCount is the number of stored results graded correct.
func (s *QuizSession) CorrectCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.correctLocked()
}

func (s *QuizSession) correctLocked() int {
	n := 0
	for _, result := range s.results {
		if result.IsCorrect {
			n++
		}
	}
	return n
}

// Accuracy is 100 * correct / answered, or 0 when nothing is answered.
func (s *QuizSession) Accuracy() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.results) == 0 {
		return 0
	}
	return float64(s.correctLocked()) / float64(len(s.results)) * 100
}

// IsComplete reports whether every loaded question has a result.
func (s *QuizSession) IsComplete() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.questions) > 0 && len(s.results) == len(s.questions)
}
