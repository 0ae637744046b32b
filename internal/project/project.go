package project

// Configuration is the project document consumed by the compositor.
type Configuration struct {
	Version    string                 `yaml:"version"`
	Sources    Sources                `yaml:"sources"`
	Timeline   *TimelineConfiguration `yaml:"timeline,omitempty"`
	Captions   *CaptionsData          `yaml:"captions,omitempty"`
	Cursor     CursorConfiguration    `yaml:"cursor"`
	Camera     CameraConfiguration    `yaml:"camera"`
	Background string                 `yaml:"background,omitempty"` // hex, e.g. "#101010"
}

// Sources describes where the screen and camera frames come from.
type Sources struct {
	Screen SourceSpec  `yaml:"screen"`
	Camera *SourceSpec `yaml:"camera,omitempty"`
}

// SourceSpec selects a frame source implementation.
type SourceSpec struct {
	Kind         string  `yaml:"kind"` // images, pdf, color
	Path         string  `yaml:"path,omitempty"`
	FPS          float64 `yaml:"fps,omitempty"`
	PageDuration float64 `yaml:"pageDuration,omitempty"` // seconds per page for pdf
	DPI          int     `yaml:"dpi,omitempty"`
	Color        string  `yaml:"color,omitempty"`
	Width        int     `yaml:"width,omitempty"`
	Height       int     `yaml:"height,omitempty"`
}

// TimelineConfiguration holds the ordered clip, zoom and scene segments.
// SceneSegments is nil when the project carries no scene track.
type TimelineConfiguration struct {
	Segments      []ClipSegment  `yaml:"segments"`
	ZoomSegments  []ZoomSegment  `yaml:"zoomSegments"`
	SceneSegments []SceneSegment `yaml:"sceneSegments,omitempty"`
}

// ClipSegment is a range of recording time played back at Timescale.
type ClipSegment struct {
	Start     float64 `yaml:"start"`
	End       float64 `yaml:"end"`
	Timescale float64 `yaml:"timescale,omitempty"`
}

// Duration is the playback length of the clip in output seconds.
func (c ClipSegment) Duration() float64 {
	return (c.End - c.Start) / c.Scale()
}

// Scale returns the timescale, treating unset or invalid values as 1.
func (c ClipSegment) Scale() float64 {
	if c.Timescale <= 0 {
		return 1
	}
	return c.Timescale
}

type ZoomSegment struct {
	Start  float64 `yaml:"start"`
	End    float64 `yaml:"end"`
	Amount float64 `yaml:"amount"`
	Focus  Point   `yaml:"focus"` // normalized, 0.5/0.5 is the frame center
}

type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

type SceneMode string

const (
	SceneModeDefault    SceneMode = "default"
	SceneModeCameraOnly SceneMode = "cameraOnly"
	SceneModeHideCamera SceneMode = "hideCamera"
)

// SceneSegment selects a scene mode for [Start, End). A nil Mode means default.
type SceneSegment struct {
	Start float64    `yaml:"start"`
	End   float64    `yaml:"end"`
	Mode  *SceneMode `yaml:"mode,omitempty"`
}

// CaptionsData is the caption track of a project.
type CaptionsData struct {
	Segments []CaptionSegment `yaml:"segments"`
	Settings CaptionSettings  `yaml:"settings"`
}

type CaptionSegment struct {
	ID    string  `yaml:"id"`
	Start float32 `yaml:"start"`
	End   float32 `yaml:"end"`
	Text  string  `yaml:"text"`
}

// CaptionSettings is the user-facing caption style. Colors are "#RRGGBB" strings.
type CaptionSettings struct {
	Enabled           bool   `yaml:"enabled"`
	Font              string `yaml:"font"`
	Size              int    `yaml:"size"`
	Color             string `yaml:"color"`
	BackgroundColor   string `yaml:"backgroundColor"`
	BackgroundOpacity int    `yaml:"backgroundOpacity"` // percent
	Outline           bool   `yaml:"outline"`
	OutlineColor      string `yaml:"outlineColor"`
	Bold              bool   `yaml:"bold"`
	Italic            bool   `yaml:"italic"`
	Position          string `yaml:"position"`
}

// DefaultCaptionSettings returns the style new projects start with.
func DefaultCaptionSettings() CaptionSettings {
	return CaptionSettings{
		Enabled:           true,
		Font:              "System Sans-Serif",
		Size:              24,
		Color:             "#FFFFFF",
		BackgroundColor:   "#000000",
		BackgroundOpacity: 80,
		Outline:           true,
		OutlineColor:      "#000000",
		Bold:              true,
		Italic:            false,
		Position:          "bottom",
	}
}

type CursorConfiguration struct {
	Hide   bool          `yaml:"hide"`
	Size   float64       `yaml:"size,omitempty"` // radius in 1080p pixels
	Color  string        `yaml:"color,omitempty"`
	Events []CursorEvent `yaml:"events,omitempty"`
}

// CursorEvent is a cursor sample in recording time. X and Y are normalized
// to the screen capture.
type CursorEvent struct {
	Time float64 `yaml:"time"`
	X    float64 `yaml:"x"`
	Y    float64 `yaml:"y"`
}

type CameraConfiguration struct {
	Position string  `yaml:"position,omitempty"` // top-left, top-right, bottom-left, bottom-right
	Size     float64 `yaml:"size,omitempty"`     // fraction of the output width
}

// Bounds methods expose the half-open [start, end) range of each segment kind.

func (c ClipSegment) Bounds() (float64, float64)  { return c.Start, c.End }
func (z ZoomSegment) Bounds() (float64, float64)  { return z.Start, z.End }
func (s SceneSegment) Bounds() (float64, float64) { return s.Start, s.End }
func (c CaptionSegment) Bounds() (float64, float64) {
	return float64(c.Start), float64(c.End)
}
