package layers

import (
	"image"
	"image/color"
	"testing"

	"github.com/ivlev/frameforge/internal/gpu"
	"github.com/ivlev/frameforge/internal/project"
	"github.com/ivlev/frameforge/internal/timeline"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestFit(t *testing.T) {
	tests := []struct {
		src  image.Point
		w, h int
		want image.Rectangle
	}{
		{image.Pt(1920, 1080), 1280, 720, image.Rect(0, 0, 1280, 720)},
		{image.Pt(1080, 1080), 1280, 720, image.Rect(280, 0, 1000, 720)},
		{image.Pt(1280, 360), 1280, 720, image.Rect(0, 180, 1280, 540)},
		{image.Pt(0, 10), 1280, 720, image.Rectangle{}},
	}

	for _, tt := range tests {
		if got := fit(tt.src, tt.w, tt.h); got != tt.want {
			t.Errorf("fit(%v, %d, %d): expected %v, got %v", tt.src, tt.w, tt.h, tt.want, got)
		}
	}
}

func TestScreenLayerZoomCrop(t *testing.T) {
	l := NewScreenLayer()
	fc := &FrameContext{
		Width: 1280, Height: 720,
		Screen: solid(1920, 1080, color.White),
		Zoom:   timeline.ZoomState{Amount: 2, Focus: project.Point{X: 0.95, Y: 0.5}},
	}
	l.Prepare(fc)

	// The crop is clamped to the right edge of the capture.
	want := image.Rect(960, 270, 1920, 810)
	if l.src != want {
		t.Errorf("Expected crop %v, got %v", want, l.src)
	}
	if l.Rect() != image.Rect(0, 0, 1280, 720) {
		t.Errorf("Expected full frame placement, got %v", l.Rect())
	}

	x, y, ok := l.Project(0.75, 0.5)
	if !ok || x != 640 || y != 360 {
		t.Errorf("Expected (640, 360), got (%v, %v, %v)", x, y, ok)
	}
	if _, _, ok := l.Project(0.1, 0.5); ok {
		t.Error("Expected point outside the crop to be rejected")
	}
}

func TestScreenLayerWithoutFrame(t *testing.T) {
	l := NewScreenLayer()
	l.Prepare(&FrameContext{Width: 640, Height: 360})
	if _, _, ok := l.Project(0.5, 0.5); ok {
		t.Error("Expected no projection without a screen frame")
	}
}

func TestCameraLayerPlacement(t *testing.T) {
	cam := solid(640, 480, color.White)
	tests := []struct {
		name     string
		mode     project.SceneMode
		position string
		want     image.Rectangle
	}{
		{"bottom right", project.SceneModeDefault, "bottom-right", image.Rect(941, 701, 1261, 941)},
		{"top left", project.SceneModeDefault, "top-left", image.Rect(19, 19, 339, 259)},
		{"camera only", project.SceneModeCameraOnly, "top-left", image.Rect(0, 0, 1280, 960)},
	}

	for _, tt := range tests {
		l := NewCameraLayer()
		proj := &project.Configuration{Camera: project.CameraConfiguration{Size: 0.25, Position: tt.position}}
		l.Prepare(&FrameContext{Width: 1280, Height: 960, Mode: tt.mode, Project: proj, Camera: cam})
		if l.Rect() != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, l.Rect())
		}
	}
}

func TestCursorLayerFollowsScreen(t *testing.T) {
	screen := NewScreenLayer()
	cursor := NewCursorLayer(screen, nil)
	proj := &project.Configuration{
		Cursor: project.CursorConfiguration{
			Size:  12,
			Color: "#FF0000",
			Events: []project.CursorEvent{
				{Time: 0, X: 0, Y: 0},
				{Time: 2, X: 1, Y: 1},
			},
		},
	}
	fc := &FrameContext{
		SourceTime: 1, Width: 1920, Height: 1080,
		Project: proj, Screen: solid(192, 108, color.Black),
		Zoom: timeline.NoZoom,
	}
	screen.Prepare(fc)
	cursor.Prepare(fc)

	x, y, ok := cursor.Position()
	if !ok || x != 960 || y != 540 {
		t.Errorf("Expected cursor at (960, 540), got (%v, %v, %v)", x, y, ok)
	}

	dev := gpu.NewDevice()
	tex := dev.CreateTexture(1920, 1080)
	defer tex.Release()
	pass := dev.BeginRenderPass(tex, color.Transparent)
	cursor.Render(pass)
	if err := pass.End(); err != nil {
		t.Fatalf("pass.End failed: %v", err)
	}
	if got := tex.Image().RGBAAt(960, 540); got.R < 200 || got.G != 0 {
		t.Errorf("Expected red cursor pixel, got %+v", got)
	}

	proj.Cursor.Hide = true
	cursor.Prepare(fc)
	if _, _, ok := cursor.Position(); ok {
		t.Error("Expected hidden cursor")
	}
}
