package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/abhisek/lumora/internal/store"
)

var videoCmd = &cobra.Command{
	Use:   "video",
	Short: "Manage the videos of a course",
}

var videoAddCmd = &cobra.Command{
	Use:   "add <course-id> <title>",
	Short: "Append a video to a course",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd, nil)
		if err != nil {
			return err
		}
		defer rt.Close()

		v := &store.Video{CourseID: args[0], Title: args[1]}
		readVideoFlags(cmd, v)
		if err := rt.services(cmd.Context()).Catalog.AddVideo(cmd.Context(), v); err != nil {
			return fmt.Errorf("add video: %w", err)
		}
		fmt.Printf("%s (position %d)\n", v.ID, v.Position)
		return nil
	},
}

var videoUpdateCmd = &cobra.Command{
	Use:   "update <course-id> <video-id>",
	Short: "Change a video's metadata",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd, nil)
		if err != nil {
			return err
		}
		defer rt.Close()
		ctx := cmd.Context()
		catalog := rt.services(ctx).Catalog

		v, err := catalog.Video(ctx, args[0], args[1])
		if err != nil {
			return fmt.Errorf("load video: %w", err)
		}
		if title, _ := cmd.Flags().GetString("title"); title != "" {
			v.Title = title
		}
		readVideoFlags(cmd, v)
		if err := catalog.UpdateVideo(ctx, v); err != nil {
			return fmt.Errorf("update video: %w", err)
		}
		fmt.Println("Updated.")
		return nil
	},
}

// readVideoFlags copies the metadata flags that were set onto v.
func readVideoFlags(cmd *cobra.Command, v *store.Video) {
	f := cmd.Flags()
	if f.Changed("description") {
		v.Description, _ = f.GetString("description")
	}
	if f.Changed("url") {
		v.URL, _ = f.GetString("url")
	}
	if f.Changed("thumbnail") {
		v.Thumbnail, _ = f.GetString("thumbnail")
	}
	if f.Changed("duration") {
		v.DurationSeconds, _ = f.GetInt("duration")
	}
}

var videoMoveCmd = &cobra.Command{
	Use:   "move <course-id> <video-id> <position>",
	Short: "Move a video to a 1-based position",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		pos, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid position %q: %w", args[2], err)
		}
		rt, err := openRuntime(cmd, nil)
		if err != nil {
			return err
		}
		defer rt.Close()

		videos, err := rt.services(cmd.Context()).Catalog.MoveVideo(cmd.Context(), args[0], args[1], pos)
		if err != nil {
			return fmt.Errorf("move video: %w", err)
		}
		printVideos(videos)
		return nil
	},
}

var videoRemoveCmd = &cobra.Command{
	Use:   "remove <course-id> <video-id>",
	Short: "Remove a video and its progress, quiz, transcript and notes",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd, nil)
		if err != nil {
			return err
		}
		defer rt.Close()
		if err := rt.services(cmd.Context()).Catalog.RemoveVideo(cmd.Context(), args[0], args[1]); err != nil {
			return fmt.Errorf("remove video: %w", err)
		}
		fmt.Println("Removed.")
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{videoAddCmd, videoUpdateCmd} {
		c.Flags().StringP("description", "d", "", "Video description")
		c.Flags().String("url", "", "Video URL")
		c.Flags().String("thumbnail", "", "Thumbnail URL")
		c.Flags().Int("duration", 0, "Length in seconds")
	}
	videoUpdateCmd.Flags().String("title", "", "New title")

	videoCmd.AddCommand(videoAddCmd)
	videoCmd.AddCommand(videoUpdateCmd)
	videoCmd.AddCommand(videoMoveCmd)
	videoCmd.AddCommand(videoRemoveCmd)
}
