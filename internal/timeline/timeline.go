// Package timeline answers "what is active at time t" for every segment track
// of a project. All functions are pure and safe for concurrent use.
package timeline

import (
	"sort"

	"github.com/ivlev/frameforge/internal/project"
)

// Span is a segment with a half-open [start, end) range.
type Span interface {
	Bounds() (start, end float64)
}

// Find returns the first segment in slice order whose range contains t.
// Overlapping segments are not an error; the earlier one wins.
func Find[S Span](segments []S, t float64) (S, int, bool) {
	for i, s := range segments {
		start, end := s.Bounds()
		if start <= t && t < end {
			return s, i, true
		}
	}
	var zero S
	return zero, -1, false
}

// SceneModeAt returns the scene mode active at t. The boolean is false when the
// timeline has no scene track or no scene segment contains t, which callers
// must treat differently from an explicit default segment.
func SceneModeAt(tl *project.TimelineConfiguration, t float64) (project.SceneMode, bool) {
	if tl == nil || len(tl.SceneSegments) == 0 {
		return "", false
	}
	seg, _, ok := Find(tl.SceneSegments, t)
	if !ok {
		return "", false
	}
	if seg.Mode == nil {
		return project.SceneModeDefault, true
	}
	return *seg.Mode, true
}

// CaptionAt returns the caption shown at t. Caption bounds are stored in
// single precision, so t is rounded the same way before comparing.
func CaptionAt(segments []project.CaptionSegment, t float64) (project.CaptionSegment, bool) {
	seg, _, ok := Find(segments, float64(float32(t)))
	return seg, ok
}

// ClipPosition locates an output time inside the recording.
type ClipPosition struct {
	Index       int     // clip segment index
	SourceTime  float64 // recording time in seconds
	OutputStart float64 // output time at which the clip begins
}

type outputSpan struct {
	start, end float64
}

func (s outputSpan) Bounds() (float64, float64) { return s.start, s.end }

// ClipAt maps output time to a clip and a recording time. A timeline without
// clip segments plays the recording through unchanged.
func ClipAt(tl *project.TimelineConfiguration, t float64) (ClipPosition, bool) {
	if t < 0 {
		return ClipPosition{}, false
	}
	if tl == nil || len(tl.Segments) == 0 {
		return ClipPosition{SourceTime: t}, true
	}

	spans := make([]outputSpan, len(tl.Segments))
	offset := 0.0
	for i, seg := range tl.Segments {
		spans[i] = outputSpan{start: offset, end: offset + seg.Duration()}
		offset = spans[i].end
	}

	span, i, ok := Find(spans, t)
	if !ok {
		return ClipPosition{}, false
	}
	seg := tl.Segments[i]
	return ClipPosition{
		Index:       i,
		SourceTime:  seg.Start + (t-span.start)*seg.Scale(),
		OutputStart: span.start,
	}, true
}

// Duration is the output length of the timeline, 0 when it has no clips.
func Duration(tl *project.TimelineConfiguration) float64 {
	if tl == nil {
		return 0
	}
	total := 0.0
	for _, seg := range tl.Segments {
		total += seg.Duration()
	}
	return total
}

// CursorAt interpolates the cursor position at recording time t. Events must
// be sorted by time. Before the first event there is no cursor.
func CursorAt(events []project.CursorEvent, t float64) (project.CursorEvent, bool) {
	next := sort.Search(len(events), func(i int) bool { return events[i].Time > t })
	if next == 0 {
		return project.CursorEvent{}, false
	}
	prev := events[next-1]
	if next == len(events) {
		return prev, true
	}

	after := events[next]
	span := after.Time - prev.Time
	if span <= 0 {
		return prev, true
	}
	k := (t - prev.Time) / span
	return project.CursorEvent{
		Time: t,
		X:    lerp(prev.X, after.X, k),
		Y:    lerp(prev.Y, after.Y, k),
	}, true
}
