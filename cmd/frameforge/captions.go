package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ivlev/frameforge/internal/captions"
)

var (
	captionsFormat string
	captionsOut    string
)

var captionsCmd = &cobra.Command{
	Use:   "captions [project.yaml]",
	Short: "Export project captions as SRT, WebVTT or plain text",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := captions.ParseFormat(captionsFormat)
		if err != nil {
			return err
		}
		s, err := openSession(cmd, args, false)
		if err != nil {
			return err
		}
		if !s.proj.HasCaptions() {
			return captions.ErrNoCaptions
		}

		var w io.Writer = cmd.OutOrStdout()
		if captionsOut != "" && captionsOut != "-" {
			f, err := os.Create(captionsOut)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		return captions.Export(w, s.proj.Captions.Segments, format)
	},
}

func init() {
	captionsCmd.Flags().StringVarP(&captionsFormat, "format", "f", "srt", "формат: srt, vtt, txt")
	captionsCmd.Flags().StringVarP(&captionsOut, "output", "o", "", "файл (по умолчанию stdout)")
}
