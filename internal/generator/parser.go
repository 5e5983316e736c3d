package generator

import (
	"encoding/json"
	"fmt"
	"strings"
)

// GeneratedBatch is the model's parsed output for one chunk.
type GeneratedBatch struct {
	Questions []GeneratedQuestion `json:"questions"`
}

// GeneratedQuestion is one raw question before verification assigns IDs.
type GeneratedQuestion struct {
	Type        string   `json:"type"`
	Question    string   `json:"question"`
	Options     []string `json:"options,omitempty"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation"`
}

// ValidationError aggregates everything wrong with a parsed batch.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Errors, "; "))
}

// ParseBatch strips code fences, unmarshals and validates a model response.
func ParseBatch(responseBody string) (*GeneratedBatch, error) {
	cleaned := stripCodeFences(responseBody)

	var batch GeneratedBatch
	if err := json.Unmarshal([]byte(cleaned), &batch); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	if err := validateBatch(&batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "```json"))
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "```"))
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}

func validateBatch(batch *GeneratedBatch) error {
	var errs []string
	if len(batch.Questions) == 0 {
		errs = append(errs, "batch contains no questions")
	}

	for i, q := range batch.Questions {
		prefix := fmt.Sprintf("question %d", i+1)
		if strings.TrimSpace(q.Question) == "" {
			errs = append(errs, prefix+": empty prompt")
		}
		if strings.TrimSpace(q.Answer) == "" {
			errs = append(errs, prefix+": empty answer")
		}

		switch q.Type {
		case "MCQ":
			if len(q.Options) < 2 {
				errs = append(errs, prefix+": MCQ needs at least 2 options")
				continue
			}
			if !validOptionLabel(q.Answer, len(q.Options)) {
				errs = append(errs, fmt.Sprintf("%s: answer %q is not a label within A-%c", prefix, q.Answer, 'A'+len(q.Options)-1))
			}
		case "SAQ":
			if len(q.Options) > 0 {
				errs = append(errs, prefix+": SAQ must not carry options")
			}
		default:
			errs = append(errs, fmt.Sprintf("%s: unknown type %q", prefix, q.Type))
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

func validOptionLabel(answer string, optionCount int) bool {
	label := strings.ToUpper(strings.TrimSpace(answer))
	if len(label) != 1 {
		return false
	}
	idx := int(label[0] - 'A')
	return idx >= 0 && idx < optionCount
}
