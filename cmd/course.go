package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/lumora/internal/course"
	"github.com/abhisek/lumora/internal/store"
	"github.com/abhisek/lumora/internal/transcript"
)

var courseCmd = &cobra.Command{
	Use:   "course",
	Short: "Manage courses",
}

var courseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List courses with the student's completion",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd, nil)
		if err != nil {
			return err
		}
		defer rt.Close()
		ctx := cmd.Context()
		svc := rt.services(ctx)

		courses, err := svc.Catalog.ListCourses(ctx)
		if err != nil {
			return fmt.Errorf("list courses: %w", err)
		}
		if len(courses) == 0 {
			fmt.Println("No courses yet. Create one with: lumora course create <title>")
			return nil
		}

		fmt.Printf("%-36s  %-40s  %6s  %s\n", "ID", "Title", "Videos", "Done")
		fmt.Println(strings.Repeat("─", 96))
		for _, c := range courses {
			cp, err := svc.Progress.GetCourseProgress(ctx, rt.cfg.Student, c.ID)
			if err != nil {
				return fmt.Errorf("course progress: %w", err)
			}
			fmt.Printf("%-36s  %-40s  %6d  %d%%\n", c.ID, truncate(c.Title, 40), cp.Total, cp.Percent)
		}
		return nil
	},
}

var courseCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a course",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd, nil)
		if err != nil {
			return err
		}
		defer rt.Close()
		desc, _ := cmd.Flags().GetString("description")
		thumb, _ := cmd.Flags().GetString("thumbnail")

		c := &store.Course{Title: args[0], Description: desc, Thumbnail: thumb}
		if err := rt.services(cmd.Context()).Catalog.CreateCourse(cmd.Context(), c); err != nil {
			return fmt.Errorf("create course: %w", err)
		}
		fmt.Println(c.ID)
		return nil
	},
}

var courseShowCmd = &cobra.Command{
	Use:   "show <course-id>",
	Short: "Show a course outline with lock state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd, nil)
		if err != nil {
			return err
		}
		defer rt.Close()
		ctx := cmd.Context()

		o, err := rt.services(ctx).Learner.Outline(ctx, rt.cfg.Student, args[0])
		if err != nil {
			return fmt.Errorf("load outline: %w", err)
		}
		fmt.Printf("%s\n", o.Course.Title)
		if o.Course.Description != "" {
			fmt.Println(o.Course.Description)
		}
		fmt.Printf("%d of %d videos completed (%d%%)\n\n", o.Progress.Completed, o.Progress.Total, o.Progress.Percent)

		fmt.Printf("%3s  %-36s  %-36s  %8s  %7s  %s\n", "#", "ID", "Title", "Length", "Watched", "State")
		fmt.Println(strings.Repeat("─", 112))
		for _, e := range o.Entries {
			watched := 0
			if e.Record != nil {
				watched = e.Record.WatchedPercent
			}
			length := "-"
			if e.Video.DurationSeconds > 0 {
				length = transcript.Clock(float64(e.Video.DurationSeconds))
			}
			fmt.Printf("%3d  %-36s  %-36s  %8s  %6d%%  %s\n",
				e.Video.Position, e.Video.ID, truncate(e.Video.Title, 36), length, watched, entryState(e))
		}
		return nil
	},
}

func entryState(e course.Entry) string {
	var parts []string
	switch {
	case !e.Accessible:
		parts = append(parts, "locked")
	case e.Record != nil && e.Record.Completed:
		parts = append(parts, "completed")
	case e.Record != nil && e.Record.WatchedPercent > 0:
		parts = append(parts, "in progress")
	default:
		parts = append(parts, "open")
	}
	if e.HasQuiz {
		if e.QuizPassed {
			parts = append(parts, "quiz passed")
		} else {
			parts = append(parts, "quiz pending")
		}
	}
	return strings.Join(parts, ", ")
}

var courseDeleteCmd = &cobra.Command{
	Use:   "delete <course-id>",
	Short: "Delete a course and everything attached to its videos",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd, nil)
		if err != nil {
			return err
		}
		defer rt.Close()
		if err := rt.services(cmd.Context()).Catalog.DeleteCourse(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("delete course: %w", err)
		}
		fmt.Println("Deleted.")
		return nil
	},
}

var courseRenumberCmd = &cobra.Command{
	Use:   "renumber <course-id>",
	Short: "Close gaps in video positions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd, nil)
		if err != nil {
			return err
		}
		defer rt.Close()
		videos, err := rt.services(cmd.Context()).Catalog.Renumber(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("renumber: %w", err)
		}
		printVideos(videos)
		return nil
	},
}

func printVideos(videos []store.Video) {
	for _, v := range videos {
		fmt.Printf("%3d  %-36s  %s\n", v.Position, v.ID, v.Title)
	}
}

func init() {
	courseCreateCmd.Flags().StringP("description", "d", "", "Course description")
	courseCreateCmd.Flags().String("thumbnail", "", "Thumbnail URL")

	courseCmd.AddCommand(courseListCmd)
	courseCmd.AddCommand(courseCreateCmd)
	courseCmd.AddCommand(courseShowCmd)
	courseCmd.AddCommand(courseDeleteCmd)
	courseCmd.AddCommand(courseRenumberCmd)
}
