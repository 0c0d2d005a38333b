package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abhisek/lumora/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd, os.Stderr)
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc := rt.services(ctx)
		srv := api.New(api.Deps{
			Catalog:     svc.Catalog,
			Learner:     svc.Learner,
			Progress:    svc.Progress,
			Quizzes:     svc.Quizzes,
			Transcripts: svc.Transcripts,
			Assistant:   svc.Assistant,
			Notes:       rt.store.Notes(),
		}, rt.cfg.Auth, rt.logger)
		if rt.cfg.Auth.JWTSecret == "" {
			rt.logger.Warn("no JWT secret configured: identity is read from X-User-ID and X-User-Role headers")
		}
		return srv.Listen(ctx, rt.cfg.HTTP.Addr)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (default :8080)")
}
