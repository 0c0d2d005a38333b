package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/lumora/internal/course"
	"github.com/abhisek/lumora/internal/playback"
	"github.com/abhisek/lumora/internal/progress"
	"github.com/abhisek/lumora/internal/transcript"
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Inspect and report watch progress",
}

var progressShowCmd = &cobra.Command{
	Use:   "show <video-id>",
	Short: "Show the student's stored progress for a video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd, nil)
		if err != nil {
			return err
		}
		defer rt.Close()

		rec, err := rt.services(cmd.Context()).Progress.GetProgress(cmd.Context(), rt.cfg.Student, args[0])
		if err != nil {
			return fmt.Errorf("get progress: %w", err)
		}
		if rec == nil {
			fmt.Println("Not started.")
			return nil
		}
		printRecord(*rec)
		return nil
	},
}

var progressReportCmd = &cobra.Command{
	Use:   "report <course-id> <video-id> <percent> <position-seconds>",
	Short: "Apply one player sample",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		percent, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("invalid percent %q: %w", args[2], err)
		}
		position, err := strconv.ParseFloat(args[3], 64)
		if err != nil {
			return fmt.Errorf("invalid position %q: %w", args[3], err)
		}
		rt, err := openRuntime(cmd, nil)
		if err != nil {
			return err
		}
		defer rt.Close()
		ctx := cmd.Context()
		svc := rt.services(ctx)

		if _, err := svc.Learner.Open(ctx, rt.cfg.Student, args[0], args[1]); err != nil {
			return err
		}
		d, err := svc.Progress.UpsertProgress(ctx, rt.cfg.Student, args[1],
			progress.Sample{Percent: percent, PositionSeconds: position})
		if err != nil {
			return fmt.Errorf("report progress: %w", err)
		}
		printDecision(d)
		return nil
	},
}

var progressEndedCmd = &cobra.Command{
	Use:   "ended <course-id> <video-id>",
	Short: "Record that the player reached the end of a video",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd, nil)
		if err != nil {
			return err
		}
		defer rt.Close()
		ctx := cmd.Context()
		svc := rt.services(ctx)

		if _, err := svc.Learner.Open(ctx, rt.cfg.Student, args[0], args[1]); err != nil {
			return err
		}
		d, err := svc.Progress.MarkEnded(ctx, rt.cfg.Student, args[1])
		if err != nil {
			return fmt.Errorf("mark ended: %w", err)
		}
		printDecision(d)
		adv, err := svc.Learner.Advance(ctx, rt.cfg.Student, args[0], args[1])
		if err != nil {
			return fmt.Errorf("advance: %w", err)
		}
		printAdvance(adv)
		return nil
	},
}

var progressSimulateCmd = &cobra.Command{
	Use:   "simulate <course-id> <video-id>",
	Short: "Play a video on a fast virtual clock through the playback channel",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		step, _ := cmd.Flags().GetFloat64("step")
		tick, _ := cmd.Flags().GetDuration("tick")
		stopAt, _ := cmd.Flags().GetFloat64("stop-at")
		if step <= 0 || tick <= 0 {
			return fmt.Errorf("--step and --tick must be positive")
		}

		rt, err := openRuntime(cmd, nil)
		if err != nil {
			return err
		}
		defer rt.Close()
		ctx := cmd.Context()
		svc := rt.services(ctx)
		courseID, videoID := args[0], args[1]

		sess, err := svc.Learner.Open(ctx, rt.cfg.Student, courseID, videoID)
		if err != nil {
			return fmt.Errorf("open video: %w", err)
		}
		duration := float64(sess.Video.DurationSeconds)
		if duration <= 0 {
			return fmt.Errorf("video %s has no duration", videoID)
		}
		if stopAt <= 0 || stopAt > 100 {
			stopAt = 100
		}

		ch := playback.New(svc.Progress, rt.cfg.Student, videoID, sess.Record, playback.Config{
			UIInterval:      tick,
			PersistInterval: tick * 4,
			Logger:          rt.logger,
			OnCompleted: func(d progress.Decision) {
				fmt.Printf("completed at %d%%\n", d.Record.WatchedPercent)
			},
			OnError: func(err error) {
				fmt.Println("write failed, will retry:", err)
			},
		})
		go ch.Run(ctx)

		pos := float64(sess.ResumeAt)
		fmt.Printf("playing %q from %s\n", sess.Video.Title, transcript.Clock(pos))
		for {
			pct := pos / duration * 100
			if pct >= stopAt {
				break
			}
			ch.Report(progress.Sample{Percent: pct, PositionSeconds: pos})
			select {
			case <-ctx.Done():
				ch.Close()
				ch.Wait()
				return ctx.Err()
			case <-time.After(tick):
			}
			pos = min(pos+step, duration)
		}

		if stopAt >= 100 {
			if err := ch.Ended(ctx); err != nil {
				return err
			}
		} else {
			ch.Report(progress.Sample{Percent: stopAt, PositionSeconds: pos})
		}
		ch.Close()
		ch.Wait()

		rec, err := svc.Progress.GetProgress(ctx, rt.cfg.Student, videoID)
		if err != nil {
			return fmt.Errorf("get progress: %w", err)
		}
		if rec != nil {
			printRecord(*rec)
		}
		adv, err := svc.Learner.Advance(ctx, rt.cfg.Student, courseID, videoID)
		if err != nil {
			return fmt.Errorf("advance: %w", err)
		}
		printAdvance(adv)
		return nil
	},
}

func printRecord(r progress.Record) {
	fmt.Printf("Watched:   %d%%\n", r.WatchedPercent)
	fmt.Printf("Position:  %s\n", transcript.Clock(float64(r.PlaybackPositionSeconds)))
	fmt.Printf("Completed: %v\n", r.Completed)
	if !r.UpdatedAt.IsZero() {
		fmt.Printf("Updated:   %s\n", r.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	}
}

func printDecision(d progress.Decision) {
	printRecord(d.Record)
	if d.JustCompleted {
		fmt.Println("Video just completed.")
	}
	for _, issue := range d.Issues {
		fmt.Println("warning:", issue)
	}
}

func printAdvance(a course.AdvanceDecision) {
	switch {
	case a.NeedsQuiz:
		fmt.Println("Pass the quiz to unlock the next video.")
	case a.MayAdvance && a.Next != nil:
		fmt.Printf("Up next: %d. %s (%s)\n", a.Next.Position, a.Next.Title, a.Next.ID)
	case a.MayAdvance:
		fmt.Println("Course finished.")
	default:
		fmt.Printf("Watch at least %d%% to unlock the next video.\n", progress.CompletionThreshold)
	}
}

func init() {
	progressSimulateCmd.Flags().Float64("step", 15, "Seconds of video per tick")
	progressSimulateCmd.Flags().Duration("tick", 50*time.Millisecond, "Wall-clock time per tick")
	progressSimulateCmd.Flags().Float64("stop-at", 100, "Stop at this percent instead of playing to the end")

	progressCmd.AddCommand(progressShowCmd)
	progressCmd.AddCommand(progressReportCmd)
	progressCmd.AddCommand(progressEndedCmd)
	progressCmd.AddCommand(progressSimulateCmd)
}
