package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/lumora/internal/store"
)

var noteCmd = &cobra.Command{
	Use:   "note <video-id> [text|-]",
	Short: "Show or replace the student's note on a video",
	Long:  "With only a video ID the note is printed. Otherwise the remaining arguments, or stdin when given \"-\", replace it.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd, nil)
		if err != nil {
			return err
		}
		defer rt.Close()
		ctx := cmd.Context()
		notes := rt.store.Notes()
		videoID := args[0]

		if len(args) == 1 {
			n, err := notes.GetNote(ctx, rt.cfg.Student, videoID)
			if err != nil {
				return fmt.Errorf("load note: %w", err)
			}
			if n == nil {
				fmt.Println("No note yet.")
				return nil
			}
			if n.Title != "" {
				fmt.Println(n.Title)
				fmt.Println()
			}
			fmt.Println(n.Content)
			return nil
		}

		content := strings.Join(args[1:], " ")
		if content == "-" {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read note: %w", err)
			}
			content = string(data)
		}
		title, _ := cmd.Flags().GetString("title")
		err = notes.SaveNote(ctx, &store.Note{
			StudentID: rt.cfg.Student,
			VideoID:   videoID,
			Title:     title,
			Content:   content,
		})
		if err != nil {
			return fmt.Errorf("save note: %w", err)
		}
		fmt.Println("Saved.")
		return nil
	},
}

func init() {
	noteCmd.Flags().String("title", "", "Note title")
}
