package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/abhisek/lumora/internal/assistant"
	"github.com/abhisek/lumora/internal/course"
	"github.com/abhisek/lumora/internal/progress"
	"github.com/abhisek/lumora/internal/store"
	"github.com/abhisek/lumora/internal/transcript"
)

var errNoAssistant = errors.New("assistant is not configured")

// Catalog

func (s *Server) listCourses(c *fiber.Ctx) error {
	courses, err := s.deps.Catalog.ListCourses(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]courseView, len(courses))
	for i, co := range courses {
		out[i] = toCourseView(co)
	}
	return ok(c, out)
}

func (s *Server) createCourse(c *fiber.Ctx) error {
	var req courseRequest
	if done, err := bind(c, &req); done {
		return err
	}
	co := &store.Course{Title: req.Title, Description: req.Description, Thumbnail: req.Thumbnail}
	if err := s.deps.Catalog.CreateCourse(c.UserContext(), co); err != nil {
		return err
	}
	return created(c, toCourseView(*co))
}

func (s *Server) deleteCourse(c *fiber.Ctx) error {
	if err := s.deps.Catalog.DeleteCourse(c.UserContext(), c.Params("courseID")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) addVideo(c *fiber.Ctx) error {
	var req videoRequest
	if done, err := bind(c, &req); done {
		return err
	}
	v := &store.Video{
		CourseID: c.Params("courseID"), Title: req.Title, Description: req.Description,
		URL: req.URL, Thumbnail: req.Thumbnail, DurationSeconds: req.DurationSeconds,
	}
	if err := s.deps.Catalog.AddVideo(c.UserContext(), v); err != nil {
		return err
	}
	return created(c, toVideoView(*v))
}

func (s *Server) updateVideo(c *fiber.Ctx) error {
	var req videoRequest
	if done, err := bind(c, &req); done {
		return err
	}
	v := &store.Video{
		ID: c.Params("videoID"), CourseID: c.Params("courseID"), Title: req.Title,
		Description: req.Description, URL: req.URL, Thumbnail: req.Thumbnail,
		DurationSeconds: req.DurationSeconds,
	}
	if err := s.deps.Catalog.UpdateVideo(c.UserContext(), v); err != nil {
		return err
	}
	return ok(c, toVideoView(*v))
}

func (s *Server) removeVideo(c *fiber.Ctx) error {
	if err := s.deps.Catalog.RemoveVideo(c.UserContext(), c.Params("courseID"), c.Params("videoID")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) moveVideo(c *fiber.Ctx) error {
	var req moveRequest
	if done, err := bind(c, &req); done {
		return err
	}
	videos, err := s.deps.Catalog.MoveVideo(c.UserContext(), c.Params("courseID"), c.Params("videoID"), req.Position)
	if err != nil {
		return err
	}
	return ok(c, toVideoViews(videos))
}

func (s *Server) renumber(c *fiber.Ctx) error {
	videos, err := s.deps.Catalog.Renumber(c.UserContext(), c.Params("courseID"))
	if err != nil {
		return err
	}
	return ok(c, toVideoViews(videos))
}

// Learning flow

func (s *Server) outline(c *fiber.Ctx) error {
	o, err := s.deps.Learner.Outline(c.UserContext(), identity(c).StudentID, c.Params("courseID"))
	if err != nil {
		return err
	}
	return ok(c, toOutlineView(o))
}

func (s *Server) courseProgress(c *fiber.Ctx) error {
	ctx := c.UserContext()
	courseID := c.Params("courseID")
	if _, err := s.deps.Catalog.GetCourse(ctx, courseID); err != nil {
		return err
	}
	cp, err := s.deps.Progress.GetCourseProgress(ctx, identity(c).StudentID, courseID)
	if err != nil {
		return err
	}
	return ok(c, courseProgressView{Completed: cp.Completed, Total: cp.Total, Percent: cp.Percent})
}

func (s *Server) openVideo(c *fiber.Ctx) error {
	sess, err := s.deps.Learner.Open(c.UserContext(), identity(c).StudentID, c.Params("courseID"), c.Params("videoID"))
	if err != nil {
		return err
	}
	out := sessionView{entryView: toEntryView(sess.Entry), ResumeAt: sess.ResumeAt}
	if sess.Next != nil {
		next := toEntryView(*sess.Next)
		out.Next = &next
	}
	return ok(c, out)
}

func (s *Server) reportProgress(c *fiber.Ctx) error {
	var req progressRequest
	if done, err := bind(c, &req); done {
		return err
	}
	ctx := c.UserContext()
	student := identity(c).StudentID
	courseID, videoID := c.Params("courseID"), c.Params("videoID")
	if _, err := s.deps.Learner.Open(ctx, student, courseID, videoID); err != nil {
		return err
	}
	d, err := s.deps.Progress.UpsertProgress(ctx, student, videoID, progress.Sample{
		Percent:         *req.Percent,
		PositionSeconds: *req.PositionSeconds,
	})
	if err != nil {
		return err
	}
	return ok(c, toDecisionView(d))
}

// videoEnded records the end event and tells the player whether it may
// move straight on. Locked videos record nothing.
func (s *Server) videoEnded(c *fiber.Ctx) error {
	ctx := c.UserContext()
	student := identity(c).StudentID
	courseID, videoID := c.Params("courseID"), c.Params("videoID")
	if _, err := s.deps.Learner.Open(ctx, student, courseID, videoID); err != nil {
		return err
	}
	d, err := s.deps.Progress.MarkEnded(ctx, student, videoID)
	if err != nil {
		return err
	}
	adv, err := s.deps.Learner.Advance(ctx, student, courseID, videoID)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{
		"progress": toDecisionView(d),
		"advance":  toAdvanceView(adv),
	})
}

func (s *Server) advance(c *fiber.Ctx) error {
	adv, err := s.deps.Learner.Advance(c.UserContext(), identity(c).StudentID, c.Params("courseID"), c.Params("videoID"))
	if err != nil {
		return err
	}
	return ok(c, toAdvanceView(adv))
}

func toAdvanceView(d course.AdvanceDecision) fiber.Map {
	m := fiber.Map{"mayAdvance": d.MayAdvance, "needsQuiz": d.NeedsQuiz}
	if d.Next != nil {
		m["nextVideoId"] = d.Next.ID
	}
	return m
}

// Quizzes

func (s *Server) getQuiz(c *fiber.Ctx) error {
	ctx := c.UserContext()
	videoID := c.Params("videoID")
	if _, err := s.deps.Learner.Open(ctx, identity(c).StudentID, c.Params("courseID"), videoID); err != nil {
		return err
	}
	q, err := s.deps.Quizzes.Get(ctx, videoID)
	if err != nil {
		return err
	}
	out := make([]questionView, len(q.Questions))
	for i, qq := range q.Questions {
		out[i] = questionView{Question: qq.Question, Options: qq.Options, StartTime: qq.StartTime}
	}
	passed, err := s.deps.Quizzes.Tracker().IsQuizCompleted(ctx, identity(c).StudentID, videoID)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"videoId": videoID, "questions": out, "passed": passed})
}

func (s *Server) submitQuiz(c *fiber.Ctx) error {
	var req quizSubmitRequest
	if done, err := bind(c, &req); done {
		return err
	}
	ctx := c.UserContext()
	student := identity(c).StudentID
	courseID, videoID := c.Params("courseID"), c.Params("videoID")
	if _, err := s.deps.Learner.Open(ctx, student, courseID, videoID); err != nil {
		return err
	}
	sub, err := s.deps.Quizzes.Submit(ctx, student, videoID, req.Answers)
	if err != nil {
		return err
	}
	out := submissionView{
		Correct: sub.Correct, Total: sub.Total, Percent: sub.Percent(),
		Passed: sub.Passed, Wrong: sub.Wrong, NewlyPassed: sub.NewlyPassed,
	}
	if sub.Passed {
		q, err := s.deps.Quizzes.Get(ctx, videoID)
		if err != nil {
			return err
		}
		out.Review = q.Questions
		t, err := s.deps.Learner.QuizPassed(ctx, student, courseID, videoID)
		if err != nil {
			return err
		}
		tv := &transitionView{Navigate: t.Navigate, KeepPanel: t.KeepPanel}
		if t.Next != nil {
			tv.NextVideoID = t.Next.ID
		}
		out.Transition = tv
	}
	return ok(c, out)
}

func (s *Server) generateQuiz(c *fiber.Ctx) error {
	q, err := s.deps.Quizzes.Generate(c.UserContext(), c.Params("videoID"))
	if err != nil {
		return err
	}
	return created(c, fiber.Map{"videoId": q.VideoID, "model": q.Model, "questions": q.Questions})
}

func (s *Server) importQuiz(c *fiber.Ctx) error {
	var req quizImportRequest
	if done, err := bind(c, &req); done {
		return err
	}
	q, err := s.deps.Quizzes.Import(c.UserContext(), c.Params("videoID"), req.Questions)
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"videoId": q.VideoID, "model": q.Model, "questions": q.Questions})
}

func (s *Server) deleteQuiz(c *fiber.Ctx) error {
	if err := s.deps.Quizzes.Delete(c.UserContext(), c.Params("videoID")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Transcripts

func (s *Server) getTranscript(c *fiber.Ctx) error {
	t, err := s.deps.Transcripts.Get(c.UserContext(), c.Params("videoID"))
	if err != nil {
		return err
	}
	return ok(c, transcriptView(t))
}

func (s *Server) importTranscript(c *fiber.Ctx) error {
	t, err := s.deps.Transcripts.Import(c.UserContext(), c.Params("videoID"), c.Body())
	if err != nil {
		if errors.Is(err, transcript.ErrEmpty) || errors.Is(err, store.ErrNotFound) {
			return err
		}
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return ok(c, transcriptView(t))
}

func transcriptView(t *transcript.Video) fiber.Map {
	return fiber.Map{
		"videoId":    t.VideoID,
		"videoTitle": t.VideoTitle,
		"chunks":     t.Chunks,
		"text":       t.Text,
	}
}

// Notes

func (s *Server) getNote(c *fiber.Ctx) error {
	n, err := s.deps.Notes.GetNote(c.UserContext(), identity(c).StudentID, c.Params("videoID"))
	if err != nil {
		return err
	}
	if n == nil {
		return ok(c, fiber.Map{"title": "", "content": ""})
	}
	return ok(c, fiber.Map{"title": n.Title, "content": n.Content, "updatedAt": n.UpdatedAt})
}

func (s *Server) saveNote(c *fiber.Ctx) error {
	var req noteRequest
	if done, err := bind(c, &req); done {
		return err
	}
	n := &store.Note{
		StudentID: identity(c).StudentID, VideoID: c.Params("videoID"),
		Title: req.Title, Content: req.Content,
	}
	if err := s.deps.Notes.SaveNote(c.UserContext(), n); err != nil {
		return err
	}
	return ok(c, fiber.Map{"title": n.Title, "content": n.Content, "updatedAt": n.UpdatedAt})
}

// Assistant

func (s *Server) ask(c *fiber.Ctx) error {
	if s.deps.Assistant == nil {
		return errNoAssistant
	}
	var req askRequest
	if done, err := bind(c, &req); done {
		return err
	}
	ans, err := s.deps.Assistant.Ask(c.UserContext(), assistant.Request{
		StudentID:   identity(c).StudentID,
		VideoID:     c.Params("videoID"),
		Question:    req.Question,
		CurrentTime: req.CurrentTime,
	})
	if err != nil {
		return err
	}
	refs := make([]int, len(ans.References))
	for i, r := range ans.References {
		refs[i] = r.Seconds
	}
	return ok(c, fiber.Map{"answer": ans.Text, "references": refs})
}

func (s *Server) chatHistory(c *fiber.Ctx) error {
	if s.deps.Assistant == nil {
		return errNoAssistant
	}
	msgs, err := s.deps.Assistant.History(c.UserContext(), identity(c).StudentID, c.Params("videoID"))
	if err != nil {
		return err
	}
	out := make([]fiber.Map, len(msgs))
	for i, m := range msgs {
		out[i] = fiber.Map{"role": m.Role, "content": m.Content, "createdAt": m.CreatedAt}
	}
	return ok(c, out)
}

func (s *Server) clearChat(c *fiber.Ctx) error {
	if s.deps.Assistant == nil {
		return errNoAssistant
	}
	if err := s.deps.Assistant.Clear(c.UserContext(), identity(c).StudentID, c.Params("videoID")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
