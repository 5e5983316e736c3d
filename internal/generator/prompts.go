package generator

import (
	"fmt"
	"strings"
)

func systemPrompt() string {
	return strings.TrimSpace(`
You are a question writer for a study tool. Given a source text you
produce exam questions strictly grounded in that text. You respond with
JSON only, no prose, matching this schema:

{
  "questions": [
    {
      "type": "MCQ" | "SAQ",
      "question": "<prompt>",
      "options": ["<option>", ...],   // MCQ only, 4 options
      "answer": "<label for MCQ (A-D), model answer text for SAQ>",
      "explanation": "<why the answer is correct>"
    }
  ]
}

MCQ answers must be the letter of the correct option. SAQ entries must
omit "options". Never invent facts that are not in the source text.`)
}

func userPrompt(text string, numMCQ, numSAQ int, difficulty string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write %d multiple-choice and %d short-answer questions", numMCQ, numSAQ)
	if difficulty != "" && difficulty != "mixed" {
		fmt.Fprintf(&b, " at %s difficulty", difficulty)
	} else {
		b.WriteString(" at mixed difficulty")
	}
	b.WriteString(" from the source text below.\n\nSOURCE TEXT:\n")
	b.WriteString(text)
	return b.String()
}
