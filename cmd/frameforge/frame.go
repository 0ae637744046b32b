package main

import (
	"fmt"
	"image/png"
	"os"

	"github.com/spf13/cobra"
)

var (
	frameAt  float64
	frameOut string
)

var frameCmd = &cobra.Command{
	Use:   "frame [project.yaml]",
	Short: "Render a single frame to PNG",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, args, true)
		if err != nil {
			return err
		}
		defer s.Close()

		frame, err := s.comp.RenderFrame(cmd.Context(), frameAt)
		if err != nil {
			return fmt.Errorf("кадр %.3fs: %w", frameAt, err)
		}
		defer frame.Release()

		out := frameOut
		if out == "" {
			out = frameName(frameAt)
		}
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		if err := png.Encode(f, frame.Image); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Printf("[+++] Кадр %.3fs (%s) сохранен: %s\n", frame.Time, frame.Mode, out)
		return nil
	},
}

func init() {
	frameCmd.Flags().Float64VarP(&frameAt, "at", "t", 0, "время кадра в секундах")
	frameCmd.Flags().StringVarP(&frameOut, "output", "o", "", "путь к PNG (по умолчанию frame_<ms>.png)")
}

func frameName(t float64) string {
	return fmt.Sprintf("frame_%06d.png", int(t*1000+0.5))
}
