package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/lumora/internal/transcript"
)

var transcriptCmd = &cobra.Command{
	Use:   "transcript",
	Short: "Manage video transcripts",
}

var transcriptImportCmd = &cobra.Command{
	Use:   "import <video-id> <file.json|->",
	Short: "Import a timed transcript",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var data []byte
		var err error
		if args[1] == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(args[1])
		}
		if err != nil {
			return fmt.Errorf("read transcript: %w", err)
		}
		rt, err := openRuntime(cmd, nil)
		if err != nil {
			return err
		}
		defer rt.Close()

		t, err := rt.services(cmd.Context()).Transcripts.Import(cmd.Context(), args[0], data)
		if err != nil {
			return fmt.Errorf("import transcript: %w", err)
		}
		fmt.Printf("Imported %d chunks (%s) for %q.\n", len(t.Chunks), transcript.Clock(t.Duration()), t.VideoTitle)
		return nil
	},
}

var transcriptWhisperCmd = &cobra.Command{
	Use:   "whisper <video-id> <media-file>",
	Short: "Transcribe a media file with the OpenAI Whisper API",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd, nil)
		if err != nil {
			return err
		}
		defer rt.Close()

		t, err := rt.services(cmd.Context()).Transcripts.Transcribe(cmd.Context(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("transcribe: %w", err)
		}
		fmt.Printf("Transcribed %d chunks (%s).\n", len(t.Chunks), transcript.Clock(t.Duration()))
		return nil
	},
}

var transcriptShowCmd = &cobra.Command{
	Use:   "show <video-id>",
	Short: "Print a transcript, or the part around --at",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd, nil)
		if err != nil {
			return err
		}
		defer rt.Close()
		at, _ := cmd.Flags().GetFloat64("at")
		radius, _ := cmd.Flags().GetFloat64("radius")

		t, err := rt.services(cmd.Context()).Transcripts.Get(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("load transcript: %w", err)
		}
		chunks := t.Chunks
		if cmd.Flags().Changed("at") {
			chunks = t.Window(at, radius)
		}
		fmt.Println(transcript.Format(chunks))
		return nil
	},
}

func init() {
	transcriptShowCmd.Flags().Float64("at", 0, "Second to centre the excerpt on")
	transcriptShowCmd.Flags().Float64("radius", 60, "Seconds either side of --at")

	transcriptCmd.AddCommand(transcriptImportCmd)
	transcriptCmd.AddCommand(transcriptWhisperCmd)
	transcriptCmd.AddCommand(transcriptShowCmd)
}
