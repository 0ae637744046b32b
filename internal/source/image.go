package source

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gogpu/gg/cache"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Capacity is per shard; 16 shards keep at most 16 decoded frames.
const decodedFrameCache = 1

// ImageSequence plays a directory of numbered images at a fixed rate. A
// single file is a still shown for any time.
type ImageSequence struct {
	paths   []string
	fps     float64
	decoded *cache.ShardedCache[int, image.Image]
}

func NewImageSequence(path string, fps float64) (*ImageSequence, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	var paths []string
	if fi.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				switch strings.ToLower(filepath.Ext(entry.Name())) {
				case ".jpg", ".jpeg", ".png", ".bmp", ".webp":
					paths = append(paths, filepath.Join(path, entry.Name()))
				}
			}
		}
		sort.Strings(paths)
		if len(paths) == 0 {
			return nil, fmt.Errorf("no images in %s", path)
		}
		if fps <= 0 {
			return nil, fmt.Errorf("image sequence %s needs a positive fps", path)
		}
	} else {
		paths = []string{path}
		fps = 0
	}

	return &ImageSequence{
		paths:   paths,
		fps:     fps,
		decoded: cache.NewSharded[int, image.Image](decodedFrameCache, cache.IntHasher),
	}, nil
}

func (s *ImageSequence) FrameCount() int { return len(s.paths) }

func (s *ImageSequence) Duration() float64 {
	if s.fps == 0 {
		return 0
	}
	return float64(len(s.paths)) / s.fps
}

func (s *ImageSequence) FrameAt(ctx context.Context, t float64) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t < 0 {
		return nil, ErrNoFrame
	}
	index := 0
	if s.fps > 0 {
		index = frameIndex(t, s.fps)
	}
	if index >= len(s.paths) {
		return nil, ErrNoFrame
	}

	if img, ok := s.decoded.Get(index); ok {
		return img, nil
	}
	img, err := decodeFile(s.paths[index])
	if err != nil {
		return nil, err
	}
	s.decoded.Set(index, img)
	return img, nil
}

func (s *ImageSequence) Close() error {
	s.decoded.Clear()
	return nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}
