package captions

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/ivlev/frameforge/internal/project"
)

// ErrNoCaptions is returned when exporting a project without caption segments.
var ErrNoCaptions = errors.New("no captions found")

type Format string

const (
	FormatSRT  Format = "srt"
	FormatVTT  Format = "vtt"
	FormatText Format = "txt"
)

// ParseFormat accepts a format name or file extension.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.TrimPrefix(strings.ToLower(s), ".")); f {
	case FormatSRT, FormatVTT, FormatText:
		return f, nil
	case "text":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown caption format %q", s)
	}
}

// ContentType is the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatSRT:
		return "application/x-subrip"
	case FormatVTT:
		return "text/vtt"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Export writes the caption segments to w in the given format.
func Export(w io.Writer, segments []project.CaptionSegment, format Format) error {
	if len(segments) == 0 {
		return ErrNoCaptions
	}

	var sb strings.Builder
	switch format {
	case FormatSRT:
		for i, seg := range segments {
			fmt.Fprintf(&sb, "%d\n%s --> %s\n%s\n\n", i+1,
				timestamp(seg.Start, ','), timestamp(seg.End, ','), seg.Text)
		}
	case FormatVTT:
		sb.WriteString("WEBVTT\n\n")
		for _, seg := range segments {
			fmt.Fprintf(&sb, "%s --> %s\n%s\n\n",
				timestamp(seg.Start, '.'), timestamp(seg.End, '.'), seg.Text)
		}
	case FormatText:
		texts := make([]string, len(segments))
		for i, seg := range segments {
			texts[i] = seg.Text
		}
		sb.WriteString(strings.Join(texts, "\n\n"))
	default:
		return fmt.Errorf("unknown caption format %q", format)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// timestamp formats seconds as HH:MM:SS<sep>mmm.
func timestamp(seconds float32, sep byte) string {
	ms := int64(math.Round(float64(seconds) * 1000))
	if ms < 0 {
		ms = 0
	}
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", h, m, s, sep, ms%1000)
}
