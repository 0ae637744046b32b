// Package source decodes the recorded media a composed frame is built from.
package source

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"

	"github.com/ivlev/frameforge/internal/project"
	"github.com/ivlev/frameforge/internal/timeline"
)

// ErrNoFrame reports that a source has no frame at the requested time.
var ErrNoFrame = errors.New("no frame at time")

// FrameSource yields the frame visible at a recording time.
type FrameSource interface {
	FrameAt(ctx context.Context, t float64) (image.Image, error)
	// Duration is the playable length in seconds. Still sources report 0.
	Duration() float64
	Close() error
}

// Open builds the source described by spec. Relative paths are resolved
// against baseDir.
func Open(spec project.SourceSpec, baseDir string) (FrameSource, error) {
	path := spec.Path
	if path != "" && !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}

	switch spec.Kind {
	case "", "images":
		return NewImageSequence(path, spec.FPS)
	case "pdf":
		return NewPDFSlides(path, spec.PageDuration, spec.DPI)
	case "color":
		return NewSolid(spec.Color, spec.Width, spec.Height), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", spec.Kind)
	}
}

// SegmentFrames holds the decoded inputs of one output frame.
type SegmentFrames struct {
	Clip   timeline.ClipPosition
	Screen image.Image
	Camera image.Image // nil without a camera source
}

// Decoder pulls the screen and camera frames for a clip position.
type Decoder struct {
	screen FrameSource
	camera FrameSource
}

// NewDecoder creates a decoder. camera may be nil.
func NewDecoder(screen, camera FrameSource) *Decoder {
	return &Decoder{screen: screen, camera: camera}
}

// Frames decodes every source at pos.SourceTime. A source without a frame at
// that time is an error wrapping ErrNoFrame.
func (d *Decoder) Frames(ctx context.Context, pos timeline.ClipPosition) (*SegmentFrames, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	frames := &SegmentFrames{Clip: pos}

	screen, err := d.screen.FrameAt(ctx, pos.SourceTime)
	if err != nil {
		return nil, fmt.Errorf("screen at %.3fs: %w", pos.SourceTime, err)
	}
	frames.Screen = screen

	if d.camera != nil {
		camera, err := d.camera.FrameAt(ctx, pos.SourceTime)
		if err != nil {
			return nil, fmt.Errorf("camera at %.3fs: %w", pos.SourceTime, err)
		}
		frames.Camera = camera
	}
	return frames, nil
}

// Duration is the length of the screen recording.
func (d *Decoder) Duration() float64 {
	return d.screen.Duration()
}

func (d *Decoder) Close() error {
	var errs []error
	errs = append(errs, d.screen.Close())
	if d.camera != nil {
		errs = append(errs, d.camera.Close())
	}
	return errors.Join(errs...)
}

// OpenProject opens the screen and optional camera sources of cfg.
func OpenProject(cfg *project.Configuration, baseDir string) (*Decoder, error) {
	screen, err := Open(cfg.Sources.Screen, baseDir)
	if err != nil {
		return nil, fmt.Errorf("open screen source: %w", err)
	}
	var camera FrameSource
	if cfg.Sources.Camera != nil {
		camera, err = Open(*cfg.Sources.Camera, baseDir)
		if err != nil {
			screen.Close()
			return nil, fmt.Errorf("open camera source: %w", err)
		}
	}
	return NewDecoder(screen, camera), nil
}

// frameIndex converts a time to a frame number, tolerating float error at
// exact frame boundaries.
func frameIndex(t, fps float64) int {
	return int(t*fps + 1e-9)
}
