// Package video encodes composed frames into a video file with ffmpeg.
package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	DefaultEncoder = "libx264"
	DefaultQuality = 23
)

type Options struct {
	Width   int
	Height  int
	FPS     float64
	Encoder string // ffmpeg encoder name, libx264 when empty
	Quality int    // crf / cq, or bitrate in 100 kbit/s for videotoolbox
	// AudioPath is muxed as the soundtrack when set; the output ends with
	// the shorter stream.
	AudioPath string
	Binary    string // ffmpeg executable, "ffmpeg" when empty
	Logger    *slog.Logger
}

// FFmpegEncoder pipes raw RGBA frames into an ffmpeg process. Output goes to
// a temporary file next to the destination, renamed into place by Close, so
// an aborted export never leaves a playable partial file.
type FFmpegEncoder struct {
	opts    Options
	outPath string
	tmpPath string

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
	log    *slog.Logger

	frames int
	done   bool
	frame  *image.RGBA
}

func NewFFmpegEncoder(ctx context.Context, outPath string, opts Options) (*FFmpegEncoder, error) {
	if opts.Width <= 0 || opts.Height <= 0 || opts.FPS <= 0 {
		return nil, fmt.Errorf("video: invalid stream %dx%d @ %v fps", opts.Width, opts.Height, opts.FPS)
	}
	if opts.Encoder == "" {
		opts.Encoder = DefaultEncoder
	}
	if opts.Quality <= 0 {
		opts.Quality = DefaultQuality
	}
	if opts.Binary == "" {
		opts.Binary = "ffmpeg"
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	tmp, err := os.CreateTemp(filepath.Dir(outPath), ".frameforge-*"+filepath.Ext(outPath))
	if err != nil {
		return nil, fmt.Errorf("video: temp output: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	e := &FFmpegEncoder{opts: opts, outPath: outPath, tmpPath: tmpPath, log: log}
	e.cmd = exec.CommandContext(ctx, opts.Binary, buildArgs(opts, tmpPath)...)
	e.cmd.Stderr = &e.stderr

	stdin, err := e.cmd.StdinPipe()
	if err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("stdin pipe error: %w", err)
	}
	e.stdin = stdin

	if err := e.cmd.Start(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ffmpeg start error: %w", err)
	}
	log.Debug("ffmpeg started", "encoder", opts.Encoder, "output", outPath, "pid", e.cmd.Process.Pid)
	return e, nil
}

func buildArgs(opts Options, outPath string) []string {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"-framerate", strconv.FormatFloat(opts.FPS, 'f', -1, 64),
		"-i", "-",
	}
	if opts.AudioPath != "" {
		args = append(args, "-i", opts.AudioPath, "-map", "0:v", "-map", "1:a", "-c:a", "aac", "-shortest")
	}
	args = append(args, "-pix_fmt", "yuv420p", "-c:v", opts.Encoder)

	// Качество в зависимости от энкодера
	switch opts.Encoder {
	case "h264_videotoolbox":
		bitrate := opts.Quality * 100
		args = append(args, "-b:v", fmt.Sprintf("%dk", bitrate))
	case "h264_nvenc":
		args = append(args, "-cq", strconv.Itoa(opts.Quality))
	default: // libx264
		args = append(args, "-crf", strconv.Itoa(opts.Quality), "-preset", "medium")
	}

	return append(args, outPath)
}

// WriteFrame sends one frame. Frames must match the configured size.
func (e *FFmpegEncoder) WriteFrame(img image.Image) error {
	if e.done {
		return errors.New("video: write after close")
	}
	if b := img.Bounds(); b.Dx() != e.opts.Width || b.Dy() != e.opts.Height {
		return fmt.Errorf("video: frame %d is %dx%d, want %dx%d", e.frames, b.Dx(), b.Dy(), e.opts.Width, e.opts.Height)
	}
	if err := e.writeRawRGBA(e.stdin, img); err != nil {
		return fmt.Errorf("write raw error: %w", err)
	}
	e.frames++
	return nil
}

func (e *FFmpegEncoder) writeRawRGBA(w io.Writer, img image.Image) error {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 || rgba.Rect.Min.X != 0 || rgba.Rect.Min.Y != 0 {
		if e.frame == nil || e.frame.Rect.Size() != bounds.Size() {
			e.frame = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		}
		draw.Draw(e.frame, e.frame.Rect, img, bounds.Min, draw.Src)
		rgba = e.frame
	}
	_, err := w.Write(rgba.Pix)
	return err
}

// Frames is the number of frames written so far.
func (e *FFmpegEncoder) Frames() int { return e.frames }

// Close finishes the stream and moves the file into place.
func (e *FFmpegEncoder) Close() error {
	if e.done {
		return nil
	}
	e.done = true
	e.stdin.Close()
	if err := e.cmd.Wait(); err != nil {
		os.Remove(e.tmpPath)
		return fmt.Errorf("ffmpeg wait error: %w%s", err, e.stderrTail())
	}
	if err := os.Rename(e.tmpPath, e.outPath); err != nil {
		os.Remove(e.tmpPath)
		return fmt.Errorf("video: finalize %s: %w", e.outPath, err)
	}
	e.log.Debug("ffmpeg finished", "frames", e.frames, "output", e.outPath)
	return nil
}

// Abort stops ffmpeg and discards the partial output.
func (e *FFmpegEncoder) Abort() error {
	if e.done {
		return nil
	}
	e.done = true
	e.stdin.Close()
	if e.cmd.Process != nil {
		e.cmd.Process.Kill()
	}
	e.cmd.Wait()
	e.log.Debug("ffmpeg aborted", "frames", e.frames)
	if err := os.Remove(e.tmpPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// stderrTail is only safe to call after Wait.
func (e *FFmpegEncoder) stderrTail() string {
	out := strings.TrimSpace(e.stderr.String())
	if out == "" {
		return ""
	}
	if len(out) > 512 {
		out = out[len(out)-512:]
	}
	return ", output: " + out
}
