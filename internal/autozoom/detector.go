// Package autozoom finds regions of interest on a screen frame and turns them
// into zoom segments of a project timeline.
package autozoom

import (
	"fmt"
	"image"
)

// Block is a detected region of interest in frame pixels.
type Block struct {
	Rect       image.Rectangle
	Confidence float64 // 0.0-1.0
}

// Detector finds blocks on a frame.
type Detector interface {
	Detect(img image.Image) ([]Block, error)
}

// NewDetector returns the detector for variant.
func NewDetector(variant string) (Detector, error) {
	switch variant {
	case "contrast", "":
		return NewContrastDetector(), nil
	default:
		return nil, fmt.Errorf("unknown detector variant: %s", variant)
	}
}
