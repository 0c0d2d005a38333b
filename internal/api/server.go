// Package api exposes the catalog and the student's learning flow over
// HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/abhisek/lumora/internal/assistant"
	"github.com/abhisek/lumora/internal/config"
	"github.com/abhisek/lumora/internal/course"
	"github.com/abhisek/lumora/internal/progress"
	"github.com/abhisek/lumora/internal/quiz"
	"github.com/abhisek/lumora/internal/store"
	"github.com/abhisek/lumora/internal/transcript"
)

// Deps are the services behind the API. Assistant may be nil.
type Deps struct {
	Catalog     *course.Catalog
	Learner     *course.Learner
	Progress    *progress.Service
	Quizzes     *quiz.Service
	Transcripts *transcript.Service
	Assistant   *assistant.Assistant
	Notes       store.NoteRepo
}

// Server is the HTTP front end.
type Server struct {
	deps   Deps
	auth   config.AuthConfig
	logger *slog.Logger
	app    *fiber.App
}

// New builds the fiber app and registers all routes.
func New(deps Deps, auth config.AuthConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{deps: deps, auth: auth, logger: logger}
	s.app = fiber.New(fiber.Config{
		AppName:               "lumora",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
		ReadTimeout:           30 * time.Second,
		BodyLimit:             16 << 20,
	})
	s.routes()
	return s
}

// App returns the underlying fiber app, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

func (s *Server) routes() {
	s.app.Use(s.requestLog)
	s.app.Get("/health", func(c *fiber.Ctx) error {
		return ok(c, fiber.Map{"status": "up"})
	})

	api := s.app.Group("/api", authenticate(s.auth))

	api.Get("/courses", s.listCourses)
	api.Get("/courses/:courseID", s.outline)
	api.Get("/courses/:courseID/progress", s.courseProgress)

	v := api.Group("/courses/:courseID/videos/:videoID")
	v.Get("/", s.openVideo)
	v.Post("/progress", s.reportProgress)
	v.Post("/ended", s.videoEnded)
	v.Get("/advance", s.advance)
	v.Get("/quiz", s.getQuiz)
	v.Post("/quiz", s.submitQuiz)

	api.Get("/videos/:videoID/transcript", s.getTranscript)
	api.Get("/videos/:videoID/note", s.getNote)
	api.Put("/videos/:videoID/note", s.saveNote)
	api.Post("/videos/:videoID/ask", s.ask)
	api.Get("/videos/:videoID/chat", s.chatHistory)
	api.Delete("/videos/:videoID/chat", s.clearChat)

	admin := api.Group("/admin", requireAdmin)
	admin.Post("/courses", s.createCourse)
	admin.Delete("/courses/:courseID", s.deleteCourse)
	admin.Post("/courses/:courseID/videos", s.addVideo)
	admin.Put("/courses/:courseID/videos/:videoID", s.updateVideo)
	admin.Delete("/courses/:courseID/videos/:videoID", s.removeVideo)
	admin.Put("/courses/:courseID/videos/:videoID/position", s.moveVideo)
	admin.Post("/courses/:courseID/renumber", s.renumber)
	admin.Put("/videos/:videoID/transcript", s.importTranscript)
	admin.Post("/videos/:videoID/quiz", s.generateQuiz)
	admin.Put("/videos/:videoID/quiz", s.importQuiz)
	admin.Delete("/videos/:videoID/quiz", s.deleteQuiz)
}

func (s *Server) requestLog(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.logger.Debug("http request",
		"method", c.Method(), "path", c.Path(),
		"status", c.Response().StatusCode(), "dur", time.Since(start))
	return err
}

// Listen serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Listen(ctx context.Context, addr string) error {
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errc <- s.app.Listen(addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	s.logger.Info("http server stopped")
	return nil
}
