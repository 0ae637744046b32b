package autozoom

import (
	"errors"
	"image"
	"math"
	"sort"

	"github.com/ivlev/frameforge/internal/project"
)

var ErrNoBlocks = errors.New("no blocks detected")

// Planner turns detected blocks into zoom segments: a full view intro, one
// segment per block in reading order, a full view outro.
type Planner struct {
	MinDwell float64 // seconds per block
	MaxDwell float64
	Intro    float64 // full view before the first block
	Outro    float64
	MaxZoom  float64
	RowSlack int // blocks whose tops differ by less are on the same row
}

func NewPlanner() *Planner {
	return &Planner{
		MinDwell: 1.0,
		MaxDwell: 3.0,
		Intro:    1.0,
		Outro:    1.0,
		MaxZoom:  3.0,
		RowSlack: 20,
	}
}

// Plan lays blocks of a frame with the given bounds over [start, start+duration).
// Segments that would end past the window are dropped.
func (p *Planner) Plan(blocks []Block, frame image.Rectangle, start, duration float64) ([]project.ZoomSegment, error) {
	if len(blocks) == 0 {
		return nil, ErrNoBlocks
	}
	if frame.Empty() || duration <= 0 {
		return nil, errors.New("autozoom: empty frame or window")
	}

	sorted := p.readingOrder(blocks)
	dwell := p.dwell(duration, len(sorted))
	end := start + duration

	segments := make([]project.ZoomSegment, 0, len(sorted))
	t := start + math.Min(p.Intro, duration/4)
	for _, b := range sorted {
		if t+dwell > end-1e-9 {
			break
		}
		segments = append(segments, project.ZoomSegment{
			Start:  t,
			End:    t + dwell,
			Amount: p.zoom(b.Rect, frame),
			Focus:  focus(b.Rect, frame),
		})
		t += dwell
	}
	if len(segments) == 0 {
		return nil, ErrNoBlocks
	}
	return segments, nil
}

func (p *Planner) readingOrder(blocks []Block) []Block {
	sorted := append([]Block(nil), blocks...)
	sort.SliceStable(sorted, func(i, j int) bool {
		dy := sorted[i].Rect.Min.Y - sorted[j].Rect.Min.Y
		if dy > p.RowSlack || dy < -p.RowSlack {
			return dy < 0
		}
		return sorted[i].Rect.Min.X < sorted[j].Rect.Min.X
	})
	return sorted
}

func (p *Planner) dwell(duration float64, n int) float64 {
	avail := duration - p.Intro - p.Outro
	if avail <= 0 {
		avail = duration
	}
	return math.Min(math.Max(avail/float64(n), p.MinDwell), p.MaxDwell)
}

// zoom fits the block into 90% of the frame, clamped to [1, MaxZoom].
func (p *Planner) zoom(block, frame image.Rectangle) float64 {
	if block.Dx() == 0 || block.Dy() == 0 {
		return 1
	}
	z := math.Min(
		float64(frame.Dx())*0.9/float64(block.Dx()),
		float64(frame.Dy())*0.9/float64(block.Dy()),
	)
	return math.Min(math.Max(z, 1), p.MaxZoom)
}

func focus(block, frame image.Rectangle) project.Point {
	cx := float64(block.Min.X-frame.Min.X) + float64(block.Dx())/2
	cy := float64(block.Min.Y-frame.Min.Y) + float64(block.Dy())/2
	return project.Point{
		X: math.Round(cx/float64(frame.Dx())*1000) / 1000,
		Y: math.Round(cy/float64(frame.Dy())*1000) / 1000,
	}
}
