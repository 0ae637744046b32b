package autozoom

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// ContrastDetector finds blocks by Sobel edges, dilation and connected
// components. Large frames are downscaled to AnalysisWidth first and the
// blocks are mapped back to frame coordinates.
type ContrastDetector struct {
	MinBlockArea  int     // in frame pixels
	EdgeThreshold float64 // gradient magnitude
	AnalysisWidth int     // 0 analyses at full size
	DilateKernel  int
	DilateRounds  int
}

func NewContrastDetector() *ContrastDetector {
	return &ContrastDetector{
		MinBlockArea:  500,
		EdgeThreshold: 30.0,
		AnalysisWidth: 640,
		DilateKernel:  5,
		DilateRounds:  2,
	}
}

func (d *ContrastDetector) Detect(img image.Image) ([]Block, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, nil
	}

	gray, scale := d.grayscale(img)
	edges := sobel(gray, d.EdgeThreshold)
	mask := dilate(edges, d.DilateKernel, d.DilateRounds)

	var blocks []Block
	for _, r := range components(mask) {
		rect := image.Rect(
			b.Min.X+int(math.Floor(float64(r.Min.X)/scale)),
			b.Min.Y+int(math.Floor(float64(r.Min.Y)/scale)),
			b.Min.X+int(math.Ceil(float64(r.Max.X)/scale)),
			b.Min.Y+int(math.Ceil(float64(r.Max.Y)/scale)),
		).Intersect(b)
		if rect.Dx()*rect.Dy() < d.MinBlockArea {
			continue
		}
		blocks = append(blocks, Block{Rect: rect, Confidence: 0.7})
	}
	return blocks, nil
}

// grayscale converts img to an origin-based gray image, downscaled to
// AnalysisWidth when wider. scale is analysis pixels per frame pixel.
func (d *ContrastDetector) grayscale(img image.Image) (*image.Gray, float64) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	scale := 1.0
	if d.AnalysisWidth > 0 && w > d.AnalysisWidth {
		scale = float64(d.AnalysisWidth) / float64(w)
		w = d.AnalysisWidth
		h = max(1, int(math.Round(float64(h)*scale)))
	}
	gray := image.NewGray(image.Rect(0, 0, w, h))
	if scale == 1 {
		draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(gray, gray.Bounds(), img, b, draw.Src, nil)
	}
	return gray, scale
}

var (
	sobelX = [3][3]int{{-1, 0, 1}, {-2, 0, 2}, {-1, 0, 1}}
	sobelY = [3][3]int{{-1, -2, -1}, {0, 0, 0}, {1, 2, 1}}
)

func sobel(gray *image.Gray, threshold float64) *image.Gray {
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	edges := image.NewGray(gray.Rect)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			var sx, sy float64
			for ky := -1; ky <= 1; ky++ {
				row := gray.Pix[(y+ky)*gray.Stride:]
				for kx := -1; kx <= 1; kx++ {
					p := float64(row[x+kx])
					sx += p * float64(sobelX[ky+1][kx+1])
					sy += p * float64(sobelY[ky+1][kx+1])
				}
			}
			if math.Sqrt(sx*sx+sy*sy) > threshold {
				edges.Pix[y*edges.Stride+x] = 255
			}
		}
	}
	return edges
}

// dilate grows white regions by a square kernel so nearby edges of the same
// block connect.
func dilate(img *image.Gray, kernel, rounds int) *image.Gray {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	half := kernel / 2
	cur := img
	for range rounds {
		next := image.NewGray(img.Rect)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if cur.Pix[y*cur.Stride+x] == 0 {
					continue
				}
				for ky := max(0, y-half); ky <= min(h-1, y+half); ky++ {
					for kx := max(0, x-half); kx <= min(w-1, x+half); kx++ {
						next.Pix[ky*next.Stride+kx] = 255
					}
				}
			}
		}
		cur = next
	}
	return cur
}

// components returns the bounding box of every 4-connected white region.
func components(img *image.Gray) []image.Rectangle {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	visited := make([]bool, w*h)
	var rects []image.Rectangle
	var stack []image.Point

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if visited[y*w+x] || img.Pix[y*img.Stride+x] <= 128 {
				continue
			}
			r := image.Rect(x, y, x+1, y+1)
			stack = append(stack[:0], image.Pt(x, y))
			visited[y*w+x] = true
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				r = r.Union(image.Rect(p.X, p.Y, p.X+1, p.Y+1))
				for _, n := range [4]image.Point{{p.X + 1, p.Y}, {p.X - 1, p.Y}, {p.X, p.Y + 1}, {p.X, p.Y - 1}} {
					if n.X < 0 || n.X >= w || n.Y < 0 || n.Y >= h {
						continue
					}
					i := n.Y*w + n.X
					if visited[i] || img.Pix[n.Y*img.Stride+n.X] <= 128 {
						continue
					}
					visited[i] = true
					stack = append(stack, n)
				}
			}
			rects = append(rects, r)
		}
	}
	return rects
}
