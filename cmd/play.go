package cmd

import (
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abhisek/lumora/internal/app"
)

var playCmd = &cobra.Command{
	Use:   "play [course-id]",
	Short: "Open the terminal player",
	Long:  "Open the terminal player on the course list, or directly on one course's outline.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		courseID := ""
		if len(args) == 1 {
			courseID = args[0]
		}
		return runPlay(cmd, courseID)
	},
}

func runPlay(cmd *cobra.Command, courseID string) error {
	rt, err := openRuntime(cmd, io.Discard)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
	defer stop()

	svc := rt.services(ctx)
	return app.Run(ctx, app.Options{Env: rt.env(svc), CourseID: courseID})
}
