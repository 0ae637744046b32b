package driver

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ivlev/frameforge/internal/compositor"
	"github.com/ivlev/frameforge/internal/metrics"
	"github.com/ivlev/frameforge/internal/source"
)

// FrameRenderer renders an output time from scratch, or composes a
// placeholder when frames is nil.
type FrameRenderer interface {
	RenderFrame(ctx context.Context, t float64) (*compositor.Frame, error)
	Compose(t float64, frames *source.SegmentFrames) (*compositor.Frame, error)
}

type PreviewOptions struct {
	FPS float64
	// Duration stops playback at the end; 0 plays until Stop.
	Duration float64
	// OnFrame receives every delivered frame on the preview goroutine.
	// Delivered frames are never released by the preview.
	OnFrame func(*compositor.Frame)
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

type request struct {
	seq uint64
	t   float64
}

// Preview renders frames on demand with latest-request-wins semantics: a new
// request replaces the pending one and cancels the one in flight, and a
// result is delivered only if no newer request arrived meanwhile. Failed
// renders degrade to the last good frame, or a placeholder without media.
type Preview struct {
	r    FrameRenderer
	opts PreviewOptions
	log  *slog.Logger

	mu       sync.Mutex
	seq      uint64
	pending  *request
	inflight context.CancelFunc
	busy     bool
	position float64
	latest   *compositor.Frame
	lastGood *compositor.Frame
	stopPlay chan struct{}

	// testHookDeliver runs on the preview goroutine right before a frame
	// is checked for delivery.
	testHookDeliver func()

	notify chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPreview(r FrameRenderer, opts PreviewOptions) *Preview {
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Preview{
		r:      r,
		opts:   opts,
		log:    log,
		notify: make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

// Seek requests the frame at output time t and returns the request number.
func (p *Preview) Seek(t float64) uint64 {
	p.mu.Lock()
	seq := p.submit(t)
	if p.inflight != nil {
		p.inflight()
	}
	p.mu.Unlock()
	p.wake()
	return seq
}

// SeekFrame requests frame n at the preview frame rate.
func (p *Preview) SeekFrame(n int) uint64 {
	return p.Seek(float64(max(n, 0)) / p.FPS())
}

// submit must be called with mu held.
func (p *Preview) submit(t float64) uint64 {
	t = max(t, 0)
	p.seq++
	p.pending = &request{seq: p.seq, t: t}
	p.position = t
	return p.seq
}

func (p *Preview) wake() {
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// SetFPS changes the playback and SeekFrame rate. Running playback keeps
// its rate until restarted.
func (p *Preview) SetFPS(fps float64) {
	if fps <= 0 {
		return
	}
	p.mu.Lock()
	p.opts.FPS = fps
	p.mu.Unlock()
}

func (p *Preview) FPS() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opts.FPS
}

// Play advances the playhead at the preview frame rate. Ticks that arrive
// while a frame is still rendering are skipped rather than superseding it.
func (p *Preview) Play() {
	p.mu.Lock()
	if p.stopPlay != nil {
		p.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	p.stopPlay = stop
	step := 1 / p.opts.FPS
	p.mu.Unlock()

	go p.play(stop, step)
}

func (p *Preview) play(stop chan struct{}, step float64) {
	ticker := time.NewTicker(time.Duration(step * float64(time.Second)))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-p.ctx.Done():
			return
		case <-ticker.C:
		}

		p.mu.Lock()
		if p.stopPlay != stop {
			p.mu.Unlock()
			return
		}
		next := p.position + step
		end := p.opts.Duration > 0 && next >= p.opts.Duration
		if end {
			next = p.opts.Duration
		}
		submitted := false
		if !p.busy && p.pending == nil {
			p.submit(next)
			submitted = true
		} else {
			p.position = next
		}
		if end && p.stopPlay == stop {
			p.stopPlay = nil
		}
		p.mu.Unlock()

		if submitted {
			p.wake()
		}
		if end {
			return
		}
	}
}

// Stop pauses playback at the current position.
func (p *Preview) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopPlay != nil {
		close(p.stopPlay)
		p.stopPlay = nil
	}
}

func (p *Preview) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopPlay != nil
}

// Position is the playhead in seconds.
func (p *Preview) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

// Latest is the most recently delivered frame, nil before the first.
func (p *Preview) Latest() *compositor.Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest
}

// Close stops playback and the render goroutine.
func (p *Preview) Close() {
	p.Stop()
	p.cancel()
	<-p.done
}

func (p *Preview) run() {
	defer close(p.done)
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-p.notify:
		}

		for {
			p.mu.Lock()
			req := p.pending
			p.pending = nil
			if req == nil {
				p.mu.Unlock()
				break
			}
			ctx, cancel := context.WithCancel(p.ctx)
			p.inflight = cancel
			p.busy = true
			p.mu.Unlock()

			frame, err := p.r.RenderFrame(ctx, req.t)
			cancel()
			p.finish(req, frame, err)
		}
	}
}

func (p *Preview) finish(req *request, frame *compositor.Frame, err error) {
	p.mu.Lock()
	p.inflight = nil
	p.busy = false
	if req.seq != p.seq {
		p.mu.Unlock()
		if frame != nil {
			frame.Release()
		}
		p.opts.Metrics.IncPreviewSuperseded()
		return
	}

	if err == nil {
		p.lastGood = frame
		p.latest = frame
		p.mu.Unlock()
		p.deliver(req, frame)
		return
	}

	p.opts.Metrics.IncPreviewDegraded()
	p.log.Warn("preview frame failed", "time", req.t, "error", err)
	if p.lastGood != nil {
		frame = p.lastGood
		p.latest = frame
		p.mu.Unlock()
		p.deliver(req, frame)
		return
	}
	p.mu.Unlock()

	placeholder, perr := p.r.Compose(req.t, nil)
	if perr != nil {
		p.log.Error("preview placeholder failed", "time", req.t, "error", perr)
		return
	}
	p.mu.Lock()
	if req.seq != p.seq {
		p.mu.Unlock()
		placeholder.Release()
		p.opts.Metrics.IncPreviewSuperseded()
		return
	}
	p.latest = placeholder
	p.mu.Unlock()
	p.deliver(req, placeholder)
}

// deliver hands f to OnFrame unless a request newer than req was submitted
// in the meantime. A Seek that lands while OnFrame is already running
// supersedes the next frame, not f.
func (p *Preview) deliver(req *request, f *compositor.Frame) {
	if p.testHookDeliver != nil {
		p.testHookDeliver()
	}
	p.mu.Lock()
	current := req.seq == p.seq
	p.mu.Unlock()
	if !current {
		p.opts.Metrics.IncPreviewSuperseded()
		return
	}
	if p.opts.OnFrame != nil {
		p.opts.OnFrame(f)
	}
}
