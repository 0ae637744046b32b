package timeline

import (
	"math"

	"github.com/ivlev/frameforge/internal/project"
)

// ZoomRamp is how long a zoom segment takes to ease in and out.
const ZoomRamp = 0.3

// ZoomState is the camera zoom at a given moment.
type ZoomState struct {
	Amount float64       // 1.0 = no zoom
	Focus  project.Point // normalized center of the visible region
}

// NoZoom is the state outside every zoom segment.
var NoZoom = ZoomState{Amount: 1, Focus: project.Point{X: 0.5, Y: 0.5}}

// ZoomAt returns the zoom at t. Inside a segment the amount eases from 1 to the
// segment amount over ZoomRamp (or half the segment, if shorter) and back.
func ZoomAt(tl *project.TimelineConfiguration, t float64) ZoomState {
	if tl == nil {
		return NoZoom
	}
	seg, _, ok := Find(tl.ZoomSegments, t)
	if !ok {
		return NoZoom
	}

	amount := math.Max(seg.Amount, 1)
	ramp := math.Min(ZoomRamp, (seg.End-seg.Start)/2)

	k := 1.0
	if ramp > 0 {
		switch {
		case t-seg.Start < ramp:
			k = easeInOutCubic((t - seg.Start) / ramp)
		case seg.End-t < ramp:
			k = easeInOutCubic((seg.End - t) / ramp)
		}
	}

	return ZoomState{
		Amount: lerp(1, amount, k),
		Focus: project.Point{
			X: lerp(NoZoom.Focus.X, clamp01(seg.Focus.X), k),
			Y: lerp(NoZoom.Focus.Y, clamp01(seg.Focus.Y), k),
		},
	}
}

// lerp performs linear interpolation between a and b
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// easeInOutCubic applies smooth easing function
func easeInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - math.Pow(-2*t+2, 3)/2
}

func clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}
