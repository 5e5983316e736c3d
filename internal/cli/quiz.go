package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"docquiz/internal/client"
	"docquiz/internal/domain"
	"github.com/spf13/cobra"
)

// NewQuizCmd builds the interactive client: upload a document, wait for
// generation, answer the questions, then review the missed ones.
func NewQuizCmd() *cobra.Command {
	var (
		serverURL    string
		numQuestions int
		difficulty   string
	)

	cmd := &cobra.Command{
		Use:   "quiz <file>",
		Short: "Upload a document and take the generated quiz",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuiz(cmd.Context(), serverURL, args[0], numQuestions, difficulty)
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "docquiz server base URL")
	cmd.Flags().IntVar(&numQuestions, "num", 0, "number of questions to generate (0 = server default)")
	cmd.Flags().StringVar(&difficulty, "difficulty", "", "difficulty: easy, medium, hard, mixed")
	return cmd
}

func runQuiz(ctx context.Context, serverURL, path string, numQuestions int, difficulty string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	transport := client.NewHTTPTransport(strings.TrimRight(serverURL, "/")+"/api/v1", nil)

	receipt, err := transport.UploadDocument(ctx, path, content)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	fmt.Printf("uploaded %s (%d pages)\n", receipt.PDFID, receipt.PageCount)

	job, err := transport.StartGeneration(ctx, receipt.PDFID, domain.GenerationOptions{
		NumQuestions: numQuestions,
		Difficulty:   difficulty,
	})
	if err != nil {
		return fmt.Errorf("start generation: %w", err)
	}

	if err := waitForJob(ctx, transport, job.JobID); err != nil {
		return err
	}

	session := client.NewQuizSession(transport)
	if err := session.Load(ctx, receipt.PDFID); err != nil {
		return fmt.Errorf("load questions: %w", err)
	}
	if session.Len() == 0 {
		fmt.Println("no questions were generated")
		return nil
	}

	reader := bufio.NewScanner(os.Stdin)
	runQuizLoop(ctx, session, reader)
	printStats(session)

	return reviewWrongNotes(ctx, transport)
}

func waitForJob(ctx context.Context, transport client.Transport, jobID string) error {
	poller := client.NewJobPoller(transport, client.DefaultPollInterval)
	results := poller.Start(ctx, jobID, func(job domain.Job) {
		if job.Progress != nil {
			fmt.Printf("  %s %d/%d (%d%%)\n",
				job.Progress.Stage, job.Progress.Done, job.Progress.Total, job.Progress.Percent())
		}
	})

	result := <-results
	if result.Err != nil {
		return fmt.Errorf("generation: %w", result.Err)
	}
	fmt.Println("questions ready")
	return nil
}

func runQuizLoop(ctx context.Context, session *client.QuizSession, reader *bufio.Scanner) {
	for {
		question, ok := session.CurrentQuestion()
		if !ok {
			return
		}

		fmt.Printf("\n[%d/%d] %s\n", session.CurrentIndex()+1, session.Len(), question.Prompt)
		for i, option := range question.Options {
			fmt.Printf("  %s) %s\n", domain.OptionLabel(i), option)
		}
		if result, ok := session.CurrentResult(); ok {
			fmt.Printf("  (already answered: %s, score %d)\n", result.UserAnswer, result.Score)
		}
		fmt.Print("answer (or :n next, :p prev, :q quit): ")

		if !reader.Scan() {
			return
		}
		input := strings.TrimSpace(reader.Text())

		switch input {
		case ":q":
			return
		case ":n":
			if session.CurrentIndex() == session.Len()-1 && session.IsComplete() {
				return
			}
			session.Next()
			continue
		case ":p":
			session.Prev()
			continue
		case "":
			continue
		}

		result, err := session.SubmitAnswer(ctx, input)
		if err != nil {
			fmt.Printf("  error: %v\n", err)
			continue
		}
		if result.IsCorrect {
			fmt.Printf("  correct (+%d)\n", result.Score)
		} else {
			fmt.Printf("  wrong. %s\n", result.Feedback)
		}

		if session.IsComplete() {
			return
		}
		session.Next()
	}
}

func printStats(session *client.QuizSession) {
	fmt.Printf("\nanswered %d/%d, correct %d, accuracy %.0f%%\n",
		session.AnsweredCount(), session.Len(), session.CorrectCount(), session.Accuracy())
}

func reviewWrongNotes(ctx context.Context, transport client.Transport) error {
	view := client.NewWrongNoteView(transport)
	if err := view.Load(ctx); err != nil {
		return fmt.Errorf("load wrong notes: %w", err)
	}
	if view.Total() == 0 {
		return nil
	}

	fmt.Printf("\nmissed questions (%d), most missed first:\n", view.Total())
	for _, item := range view.SortedByMissCount() {
		fmt.Printf("  [x%d, last %s] %s\n      your answer: %s\n      correct: %s\n",
			item.WrongCount, item.LastWrongAt.Format(time.DateTime), item.Prompt,
			item.LastUserAnswer, item.CorrectAnswer)
		if item.Explanation != "" {
			fmt.Printf("      %s\n", item.Explanation)
		}
	}
	return nil
}
