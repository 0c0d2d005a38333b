package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/lumora/internal/quiz"
	"github.com/abhisek/lumora/internal/transcript"
)

var quizCmd = &cobra.Command{
	Use:   "quiz",
	Short: "Manage and take video quizzes",
}

var quizGenerateCmd = &cobra.Command{
	Use:   "generate <video-id>",
	Short: "Generate a quiz from the video transcript with the LLM",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd, nil)
		if err != nil {
			return err
		}
		defer rt.Close()

		q, err := rt.services(cmd.Context()).Quizzes.Generate(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("generate quiz: %w", err)
		}
		printQuiz(q, true)
		return nil
	},
}

var quizImportCmd = &cobra.Command{
	Use:   "import <video-id> <file.json>",
	Short: "Import a question set from JSON",
	Long:  "Import a question set. The file holds either an array of questions or an object with a \"questions\" array.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("read quiz file: %w", err)
		}
		questions, err := decodeQuestions(data)
		if err != nil {
			return err
		}
		rt, err := openRuntime(cmd, nil)
		if err != nil {
			return err
		}
		defer rt.Close()

		q, err := rt.services(cmd.Context()).Quizzes.Import(cmd.Context(), args[0], questions)
		if err != nil {
			return fmt.Errorf("import quiz: %w", err)
		}
		fmt.Printf("Imported %d questions.\n", len(q.Questions))
		return nil
	},
}

func decodeQuestions(data []byte) ([]quiz.Question, error) {
	var wrapped struct {
		Questions []quiz.Question `json:"questions"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && len(wrapped.Questions) > 0 {
		return wrapped.Questions, nil
	}
	var list []quiz.Question
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return list, nil
}

var quizShowCmd = &cobra.Command{
	Use:   "show <video-id>",
	Short: "Print a quiz",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd, nil)
		if err != nil {
			return err
		}
		defer rt.Close()
		answers, _ := cmd.Flags().GetBool("answers")

		q, err := rt.services(cmd.Context()).Quizzes.Get(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("load quiz: %w", err)
		}
		printQuiz(q, answers)
		return nil
	},
}

var quizSubmitCmd = &cobra.Command{
	Use:   "submit <course-id> <video-id> <answers>",
	Short: "Submit answers as a comma separated list of 1-based option numbers",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		answers, err := parseAnswers(args[2])
		if err != nil {
			return err
		}
		rt, err := openRuntime(cmd, nil)
		if err != nil {
			return err
		}
		defer rt.Close()
		ctx := cmd.Context()
		svc := rt.services(ctx)
		courseID, videoID := args[0], args[1]

		if _, err := svc.Learner.Open(ctx, rt.cfg.Student, courseID, videoID); err != nil {
			return fmt.Errorf("open video: %w", err)
		}
		sub, err := svc.Quizzes.Submit(ctx, rt.cfg.Student, videoID, answers)
		if err != nil {
			return fmt.Errorf("submit quiz: %w", err)
		}

		fmt.Printf("Score: %d/%d (%d%%)\n", sub.Correct, sub.Total, sub.Percent())
		if !sub.Passed {
			q, err := svc.Quizzes.Get(ctx, videoID)
			if err != nil {
				return fmt.Errorf("load quiz: %w", err)
			}
			fmt.Println("Not passed yet. Review these parts of the video and try again:")
			for _, i := range sub.Wrong {
				fmt.Printf("  question %d (see %s)\n", i+1, transcript.Clock(q.Questions[i].StartTime))
			}
			return nil
		}

		fmt.Println("Passed.")
		tr, err := svc.Learner.QuizPassed(ctx, rt.cfg.Student, courseID, videoID)
		if err != nil {
			return fmt.Errorf("quiz passed: %w", err)
		}
		if tr.Navigate && tr.Next != nil {
			fmt.Printf("Unlocked: %d. %s (%s)\n", tr.Next.Position, tr.Next.Title, tr.Next.ID)
		}
		return nil
	},
}

// parseAnswers reads "1,3,2" into 0-based indexes. A blank or "-" entry
// is an unanswered question.
func parseAnswers(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || p == "-" {
			out[i] = -1
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid answer %q at position %d", p, i+1)
		}
		out[i] = n - 1
	}
	return out, nil
}

var quizDeleteCmd = &cobra.Command{
	Use:   "delete <video-id>",
	Short: "Delete a video's quiz",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd, nil)
		if err != nil {
			return err
		}
		defer rt.Close()
		if err := rt.services(cmd.Context()).Quizzes.Delete(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("delete quiz: %w", err)
		}
		fmt.Println("Deleted.")
		return nil
	},
}

func printQuiz(q *quiz.Quiz, answers bool) {
	fmt.Printf("Quiz for %s (%s, %d questions)\n\n", q.VideoID, q.Model, len(q.Questions))
	for i, qq := range q.Questions {
		fmt.Printf("%d. [%s] %s\n", i+1, transcript.Clock(qq.StartTime), qq.Question)
		for j, opt := range qq.Options {
			mark := " "
			if answers && j == qq.CorrectAnswer {
				mark = "*"
			}
			fmt.Printf("   %s %d) %s\n", mark, j+1, opt)
		}
		if answers && qq.Explanation != "" {
			fmt.Printf("     %s\n", qq.Explanation)
		}
		fmt.Println()
	}
}

func init() {
	quizShowCmd.Flags().Bool("answers", false, "Mark correct options and show explanations")

	quizCmd.AddCommand(quizGenerateCmd)
	quizCmd.AddCommand(quizImportCmd)
	quizCmd.AddCommand(quizShowCmd)
	quizCmd.AddCommand(quizSubmitCmd)
	quizCmd.AddCommand(quizDeleteCmd)
}
