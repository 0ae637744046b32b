// Package driver runs the compositor for interactive preview and for
// deterministic export.
package driver

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/frameforge/internal/compositor"
	"github.com/ivlev/frameforge/internal/metrics"
	"github.com/ivlev/frameforge/internal/project"
	"github.com/ivlev/frameforge/internal/source"
	"github.com/ivlev/frameforge/internal/timeline"
)

// ErrMissingFrame fails an export when a frame's media cannot be decoded.
var ErrMissingFrame = errors.New("missing frame data")

// Composer composes decoded media into a frame.
type Composer interface {
	Compose(t float64, frames *source.SegmentFrames) (*compositor.Frame, error)
}

// Sink consumes frames in order. Close finalizes the output; Abort discards it.
type Sink interface {
	WriteFrame(img image.Image) error
	Close() error
	Abort() error
}

type ExportJob struct {
	Composer Composer
	Frames   compositor.FrameProvider
	Timeline *project.TimelineConfiguration
	Sink     Sink

	FPS float64
	// Duration in seconds; the timeline length when zero.
	Duration float64
	// Workers decode in parallel, runtime.NumCPU() when zero.
	Workers int
	// Window bounds how many decoded frames wait for the compositor,
	// 2*Workers when zero.
	Window int

	Progress func(done, total int)
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

type ExportStats struct {
	Frames  int
	Total   time.Duration
	Decode  time.Duration // summed across workers
	Compose time.Duration
	Encode  time.Duration
}

func (s ExportStats) FPS() float64 {
	if s.Total <= 0 {
		return 0
	}
	return float64(s.Frames) / s.Total.Seconds()
}

// Report formats the stats as the performance block printed after export.
func (s ExportStats) Report(build string) string {
	return fmt.Sprintf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Frames: %d\n"+
			"Total Time: %.2fs\n"+
			"Decoding (CPU, sum): %.2fs\n"+
			"Compositing: %.2fs\n"+
			"Encoding: %.2fs\n"+
			"Effective FPS: %.2f\n"+
			"----------------------------\n",
		build, s.Frames, s.Total.Seconds(), s.Decode.Seconds(), s.Compose.Seconds(), s.Encode.Seconds(), s.FPS(),
	)
}

// FrameCount is the number of frames needed to cover duration at fps.
func FrameCount(duration, fps float64) int {
	if duration <= 0 || fps <= 0 {
		return 0
	}
	return int(math.Ceil(duration*fps - 1e-9))
}

// Export renders frames 0..N-1 at t = i/fps into the sink. Decoding runs on
// parallel workers; compositing and encoding consume the frames strictly in
// order, one at a time. Any failure aborts the sink.
func Export(ctx context.Context, job ExportJob) (ExportStats, error) {
	var stats ExportStats
	start := time.Now()

	if err := job.validate(); err != nil {
		return stats, err
	}
	log := job.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	duration := job.Duration
	if duration <= 0 {
		duration = timeline.Duration(job.Timeline)
	}
	total := FrameCount(duration, job.FPS)
	if total == 0 {
		job.Sink.Abort()
		return stats, fmt.Errorf("export: nothing to render (duration %.3fs)", duration)
	}
	workers := job.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, total)
	window := job.Window
	if window <= 0 {
		window = 2 * workers
	}

	log.Info("export started", "frames", total, "fps", job.FPS, "workers", workers, "window", window)

	// jobs -> decode workers -> ring[i%window] -> compose + encode (in order).
	// Frame i is dispatched only after frame i-window was taken off the
	// ring, so each ring slot holds at most one frame.
	ring := make([]chan *source.SegmentFrames, window)
	for i := range ring {
		ring[i] = make(chan *source.SegmentFrames, 1)
	}
	slots := make(chan struct{}, window)
	jobs := make(chan int)
	var decodeNanos atomic.Int64

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		for i := 0; i < total; i++ {
			select {
			case slots <- struct{}{}:
			case <-gctx.Done():
				return nil
			}
			select {
			case jobs <- i:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := range jobs {
				t := float64(i) / job.FPS
				pos, ok := timeline.ClipAt(job.Timeline, t)
				if !ok {
					return fmt.Errorf("%w: frame %d at %.3fs is outside the timeline", ErrMissingFrame, i, t)
				}
				began := time.Now()
				frames, err := job.Frames.Frames(gctx, pos)
				decodeNanos.Add(int64(time.Since(began)))
				if err != nil {
					if errors.Is(err, source.ErrNoFrame) {
						return fmt.Errorf("%w: frame %d at %.3fs: %w", ErrMissingFrame, i, t, err)
					}
					return fmt.Errorf("decode frame %d: %w", i, err)
				}
				if frames == nil {
					return fmt.Errorf("%w: frame %d at %.3fs", ErrMissingFrame, i, t)
				}
				ring[i%window] <- frames
			}
			return nil
		})
	}

	g.Go(func() error {
		for i := 0; i < total; i++ {
			var frames *source.SegmentFrames
			select {
			case frames = <-ring[i%window]:
			case <-gctx.Done():
				return gctx.Err()
			}
			<-slots

			t := float64(i) / job.FPS
			began := time.Now()
			frame, err := job.Composer.Compose(t, frames)
			if err != nil {
				return fmt.Errorf("compose frame %d: %w", i, err)
			}
			stats.Compose += time.Since(began)

			began = time.Now()
			err = job.Sink.WriteFrame(frame.Image)
			frame.Release()
			if err != nil {
				return fmt.Errorf("encode frame %d: %w", i, err)
			}
			stats.Encode += time.Since(began)

			stats.Frames++
			job.Metrics.IncExportFrames()
			if job.Progress != nil {
				job.Progress(i+1, total)
			}
		}
		return nil
	})

	err := g.Wait()
	stats.Decode = time.Duration(decodeNanos.Load())
	if err != nil {
		if aerr := job.Sink.Abort(); aerr != nil {
			log.Warn("encoder abort failed", "error", aerr)
		}
		stats.Total = time.Since(start)
		log.Error("export failed", "frames", stats.Frames, "error", err)
		return stats, err
	}

	began := time.Now()
	if err := job.Sink.Close(); err != nil {
		stats.Total = time.Since(start)
		return stats, fmt.Errorf("finalize output: %w", err)
	}
	stats.Encode += time.Since(began)
	stats.Total = time.Since(start)
	log.Info("export finished", "frames", stats.Frames, "seconds", stats.Total.Seconds())
	return stats, nil
}

func (j ExportJob) validate() error {
	switch {
	case j.Composer == nil:
		return errors.New("export: no composer")
	case j.Frames == nil:
		return errors.New("export: no frame provider")
	case j.Sink == nil:
		return errors.New("export: no sink")
	case j.FPS <= 0:
		return fmt.Errorf("export: invalid fps %v", j.FPS)
	}
	return nil
}
