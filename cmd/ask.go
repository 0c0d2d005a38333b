package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/lumora/internal/assistant"
)

var askCmd = &cobra.Command{
	Use:   "ask <video-id> <question...>",
	Short: "Ask the learning assistant about a video",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd, nil)
		if err != nil {
			return err
		}
		defer rt.Close()
		ctx := cmd.Context()
		svc := rt.services(ctx)
		if svc.Assistant == nil {
			return errors.New("the assistant needs an LLM provider: set LUMORA_LLM_PROVIDER and its API key")
		}
		videoID := args[0]

		if clear, _ := cmd.Flags().GetBool("clear"); clear {
			if err := svc.Assistant.Clear(ctx, rt.cfg.Student, videoID); err != nil {
				return fmt.Errorf("clear chat: %w", err)
			}
			fmt.Println("Conversation cleared.")
			return nil
		}
		if history, _ := cmd.Flags().GetBool("history"); history {
			msgs, err := svc.Assistant.History(ctx, rt.cfg.Student, videoID)
			if err != nil {
				return fmt.Errorf("load chat: %w", err)
			}
			for _, m := range msgs {
				fmt.Printf("%s:\n%s\n\n", m.Role, assistant.Render(m.Content))
			}
			return nil
		}

		if len(args) < 2 {
			return errors.New("question is required")
		}
		at, _ := cmd.Flags().GetFloat64("at")
		ans, err := svc.Assistant.Ask(ctx, assistant.Request{
			StudentID:   rt.cfg.Student,
			VideoID:     videoID,
			Question:    strings.Join(args[1:], " "),
			CurrentTime: at,
		})
		if err != nil {
			return err
		}
		fmt.Println(assistant.Render(ans.Text))
		return nil
	},
}

func init() {
	askCmd.Flags().Float64("at", 0, "Player position in seconds when asking")
	askCmd.Flags().Bool("history", false, "Print the stored conversation instead of asking")
	askCmd.Flags().Bool("clear", false, "Delete the stored conversation")
}
