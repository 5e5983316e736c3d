package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"docquiz/internal/domain"
)

const saqPassThreshold = 0.6

// QuestionRepository loads generated question sets (usually through a cache).
type QuestionRepository interface {
	GetQuestionSet(ctx context.Context, pdfID string) (domain.QuestionSet, error)
}

// WrongNoteStore owns the missed-items ledger.
type WrongNoteStore interface {
	RecordMiss(ctx context.Context, item domain.WrongNoteItem) error
	ListWrongNotes(ctx context.Context) (domain.WrongNoteBook, error)
}

// GradingService grades submitted answers against the stored answer key
// and maintains the wrong-note ledger.
type GradingService struct {
	questions QuestionRepository
	notes     WrongNoteStore
	now       func() time.Time
}

func NewGradingService(questions QuestionRepository, notes WrongNoteStore) *GradingService {
	return &GradingService{questions: questions, notes: notes, now: time.Now}
}

// NewGradingServiceWithClock is test-only for deterministic timestamps.
func NewGradingServiceWithClock(questions QuestionRepository, notes WrongNoteStore, now func() time.Time) *GradingService {
	return &GradingService{questions: questions, notes: notes, now: now}
}

// Questions returns the public question list for a document.
func (s *GradingService) Questions(ctx context.Context, pdfID string) ([]domain.Question, error) {
	set, err := s.questions.GetQuestionSet(ctx, pdfID)
	if err != nil {
		return nil, err
	}
	return set.Questions, nil
}

// Grade scores one answer. Incorrect answers are recorded in the
// wrong-note ledger before the result is returned.
func (s *GradingService) Grade(ctx context.Context, pdfID, questionID, answer string) (domain.GradeResult, error) {
	if strings.TrimSpace(answer) == "" {
		return domain.GradeResult{}, domain.ErrEmptyAnswer
	}

	set, err := s.questions.GetQuestionSet(ctx, pdfID)
	if err != nil {
		return domain.GradeResult{}, err
	}

	var question *domain.Question
	for i := range set.Questions {
		if set.Questions[i].QuestionID == questionID {
			question = &set.Questions[i]
			break
		}
	}
	if question == nil {
		return domain.GradeResult{}, domain.ErrQuestionNotFound
	}
	key, ok := set.Answers[questionID]
	if !ok {
		return domain.GradeResult{}, domain.ErrQuestionNotFound
	}

	result := domain.GradeResult{
		QuestionID:    questionID,
		Type:          question.Type,
		UserAnswer:    answer,
		CorrectAnswer: key.Answer,
		GradedAt:      s.now(),
	}

	switch question.Type {
	case domain.TypeMCQ:
		result.IsCorrect = mcqMatches(*question, key.Answer, answer)
		if result.IsCorrect {
			result.Score = 10
			result.Feedback = "Correct."
		} else {
			result.Feedback = mcqFeedback(*question, key)
		}
	case domain.TypeSAQ:
		ratio := saqOverlap(key.Answer, answer)
		result.Score = int(ratio*10 + 0.5)
		result.IsCorrect = ratio >= saqPassThreshold
		if key.Explanation != "" {
			result.Feedback = key.Explanation
		} else {
			result.Feedback = "Model answer: " + key.Answer
		}
	default:
		return domain.GradeResult{}, fmt.Errorf("question %s has unknown type %q", questionID, question.Type)
	}

	if !result.IsCorrect {
		miss := domain.WrongNoteItem{
			QuestionID:     questionID,
			Prompt:         question.Prompt,
			LastUserAnswer: answer,
			CorrectAnswer:  key.Answer,
			Explanation:    key.Explanation,
			LastWrongAt:    result.GradedAt,
		}
		if err := s.notes.RecordMiss(ctx, miss); err != nil {
			return domain.GradeResult{}, fmt.Errorf("record miss: %w", err)
		}
	}
	return result, nil
}

// WrongNotes returns the raw ledger; clients sort it locally.
func (s *GradingService) WrongNotes(ctx context.Context) (domain.WrongNoteBook, error) {
	return s.notes.ListWrongNotes(ctx)
}

// mcqMatches accepts either the option label ("C") or the full text of
// the correct option.
func mcqMatches(q domain.Question, correctLabel, answer string) bool {
	if correctLabel == "" {
		return false
	}
	answer = strings.TrimSpace(answer)
	if strings.EqualFold(answer, correctLabel) {
		return true
	}
	idx := int(strings.ToUpper(correctLabel)[0] - 'A')
	if idx >= 0 && idx < len(q.Options) {
		return strings.EqualFold(answer, strings.TrimSpace(q.Options[idx]))
	}
	return false
}

func mcqFeedback(q domain.Question, key domain.AnswerKey) string {
	if key.Answer == "" {
		return key.Explanation
	}
	idx := int(strings.ToUpper(key.Answer)[0] - 'A')
	text := ""
	if idx >= 0 && idx < len(q.Options) {
		text = ": " + q.Options[idx]
	}
	feedback := fmt.Sprintf("The correct answer is %s%s.", key.Answer, text)
	if key.Explanation != "" {
		feedback += " " + key.Explanation
	}
	return feedback
}

// saqOverlap scores a short answer by the fraction of the model
// answer's significant words present in the submission.
func saqOverlap(modelAnswer, answer string) float64 {
	keywords := significantWords(modelAnswer)
	if len(keywords) == 0 {
		if strings.EqualFold(strings.TrimSpace(modelAnswer), strings.TrimSpace(answer)) {
			return 1
		}
		return 0
	}

	given := make(map[string]bool)
	for _, w := range significantWords(answer) {
		given[w] = true
	}

	matched := 0
	for _, w := range keywords {
		if given[w] {
			matched++
		}
	}
	return float64(matched) / float64(len(keywords))
}

func significantWords(s string) []string {
	var words []string
	seen := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,;:!?\"'()[]")
		if len(w) < 3 || seen[w] {
			continue
		}
		seen[w] = true
		words = append(words, w)
	}
	return words
}
