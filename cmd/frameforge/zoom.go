package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ivlev/frameforge/internal/autozoom"
	"github.com/ivlev/frameforge/internal/project"
	"github.com/ivlev/frameforge/internal/source"
	"github.com/ivlev/frameforge/internal/timeline"
)

var (
	zoomAt       float64
	zoomWindow   float64
	zoomDetector string
	zoomWrite    bool
)

var zoomCmd = &cobra.Command{
	Use:   "zoom [project.yaml]",
	Short: "Detect content blocks on the screen and plan zoom segments",
	Long:  "zoom analyses the screen frame at --at, finds content blocks and lays one zoom segment per block over the window that follows. Segments are printed as YAML, or appended to the project with --write.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		detector, err := autozoom.NewDetector(zoomDetector)
		if err != nil {
			return err
		}
		s, err := openSession(cmd, args, true)
		if err != nil {
			return err
		}
		defer s.Close()

		pos, ok := timeline.ClipAt(s.proj.Timeline, zoomAt)
		if !ok {
			return fmt.Errorf("%.3fs: %w", zoomAt, source.ErrNoFrame)
		}
		frames, err := s.decoder.Frames(cmd.Context(), pos)
		if err != nil {
			return err
		}

		window := zoomWindow
		if window <= 0 {
			window = windowAfter(s.proj.Timeline, pos, zoomAt, s.decoder.Duration())
		}

		blocks, err := detector.Detect(frames.Screen)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "[*] Найдено блоков: %d\n", len(blocks))

		segments, err := autozoom.NewPlanner().Plan(blocks, frames.Screen.Bounds(), zoomAt, window)
		if err != nil {
			return err
		}

		if !zoomWrite {
			out, err := yaml.Marshal(segments)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		}

		if s.proj.Timeline == nil {
			s.proj.Timeline = &project.TimelineConfiguration{}
		}
		s.proj.Timeline.ZoomSegments = append(s.proj.Timeline.ZoomSegments, segments...)
		if err := project.Write(s.proj, s.projPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "[+++] Добавлено %d сегментов зума: %s\n", len(segments), s.projPath)
		return nil
	},
}

func init() {
	f := zoomCmd.Flags()
	f.Float64VarP(&zoomAt, "at", "t", 0, "время анализируемого кадра")
	f.Float64Var(&zoomWindow, "window", 0, "длительность окна в секундах (по умолчанию до конца клипа)")
	f.StringVar(&zoomDetector, "detector", "contrast", "детектор блоков")
	f.BoolVar(&zoomWrite, "write", false, "дописать сегменты в проект")
}

// windowAfter is the output time left in the clip containing t, or in the
// recording when the timeline has no clips.
func windowAfter(tl *project.TimelineConfiguration, pos timeline.ClipPosition, t, recording float64) float64 {
	if tl == nil || len(tl.Segments) == 0 {
		return recording - t
	}
	return pos.OutputStart + tl.Segments[pos.Index].Duration() - t
}
