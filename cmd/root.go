package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/lumora/internal/assistant"
	"github.com/abhisek/lumora/internal/config"
	"github.com/abhisek/lumora/internal/course"
	"github.com/abhisek/lumora/internal/llm"
	"github.com/abhisek/lumora/internal/logging"
	"github.com/abhisek/lumora/internal/playback"
	"github.com/abhisek/lumora/internal/progress"
	"github.com/abhisek/lumora/internal/quiz"
	"github.com/abhisek/lumora/internal/screen"
	"github.com/abhisek/lumora/internal/store"
	"github.com/abhisek/lumora/internal/transcript"
)

var rootCmd = &cobra.Command{
	Use:           "lumora",
	Short:         "Course video player with sequential unlock",
	Long:          "Lumora plays course videos in order, tracks how much of each one a student has watched and unlocks the next lesson once it is finished and its quiz is passed.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlay(cmd, "")
	},
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Config file (default: lumora.yaml in the working or config directory)")
	pf.String("db", "", "SQLite file or postgres:// URL (overrides LUMORA_DB)")
	pf.String("student", "", "Student ID used by the CLI and the player")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.String("log-file", "", "Write logs to this file")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(courseCmd)
	rootCmd.AddCommand(videoCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(quizCmd)
	rootCmd.AddCommand(transcriptCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(noteCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// runtime holds what every command opens: configuration, the logger and
// the store.
type runtime struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.Store

	logCloser io.Closer
}

// openRuntime loads configuration and opens the store. logOut is where
// logs go when no log file is configured; the terminal player passes
// io.Discard.
func openRuntime(cmd *cobra.Command, logOut io.Writer) (*runtime, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, closer, err := logging.Setup(cfg.Log, logOut)
	if err != nil {
		return nil, err
	}

	dsn, err := resolveDSN(cfg.DB)
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.Open(dsn)
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}
	logger.Debug("store opened", "dialect", st.Dialect())
	return &runtime{cfg: cfg, logger: logger, store: st, logCloser: closer}, nil
}

// resolveDSN returns the configured database, or the default data path.
func resolveDSN(db string) (string, error) {
	if db == "" {
		return store.DefaultDBPath()
	}
	return db, store.EnsureDir(db)
}

func (r *runtime) Close() {
	if err := r.store.Close(); err != nil {
		r.logger.Warn("close store", "error", err)
	}
	r.logCloser.Close()
}

// services is the wired service graph. Provider, Assistant and the quiz
// generator are absent when no LLM provider is configured.
type services struct {
	Catalog     *course.Catalog
	Learner     *course.Learner
	Progress    *progress.Service
	Quizzes     *quiz.Service
	Transcripts *transcript.Service
	Assistant   *assistant.Assistant
	Provider    llm.Provider
}

func (r *runtime) services(ctx context.Context) *services {
	st := r.store
	provider, err := llm.NewProviderFromEnv(ctx, st.EventRepo())
	if err != nil {
		r.logger.Debug("LLM features unavailable", "reason", err)
	}

	var transcriber transcript.Transcriber
	if key := firstEnv("LUMORA_OPENAI_API_KEY", "OPENAI_API_KEY"); key != "" {
		w, err := transcript.NewWhisperTranscriber(transcript.WhisperConfig{
			APIKey:  key,
			BaseURL: os.Getenv("LUMORA_OPENAI_BASE_URL"),
		})
		if err == nil {
			transcriber = w
		}
	}

	prog := progress.NewService(st.Progress(), st.Courses(), r.logger)
	transcripts := transcript.NewService(st.Transcripts(), st.Courses(), transcriber, r.logger)

	qcfg := quiz.DefaultConfig()
	qcfg.PassRatio = r.cfg.Quiz.PassRatio
	qcfg.Questions = r.cfg.Quiz.Questions
	var gen quiz.Generator
	if provider != nil {
		gen = quiz.New(provider, qcfg)
	}
	quizzes := quiz.NewService(gen, st.Quizzes(), transcripts, qcfg, r.logger)

	svc := &services{
		Catalog:     course.NewCatalog(st.Courses(), r.logger),
		Learner:     course.NewLearner(st.Courses(), prog, quizzes.Tracker()),
		Progress:    prog,
		Quizzes:     quizzes,
		Transcripts: transcripts,
		Provider:    provider,
	}
	if provider != nil {
		svc.Assistant = assistant.New(provider, transcripts, st.Chat(), assistant.DefaultConfig(), r.logger)
	}
	return svc
}

// env adapts the service graph for the terminal screens.
func (r *runtime) env(svc *services) *screen.Env {
	return &screen.Env{
		StudentID:   r.cfg.Student,
		Catalog:     svc.Catalog,
		Learner:     svc.Learner,
		Progress:    svc.Progress,
		Quizzes:     svc.Quizzes,
		Transcripts: svc.Transcripts,
		Assistant:   svc.Assistant,
		Playback: playback.Config{
			UIInterval:      r.cfg.Playback.UIInterval,
			PersistInterval: r.cfg.Playback.PersistInterval,
			Logger:          r.logger,
		},
		Logger: r.logger,
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
