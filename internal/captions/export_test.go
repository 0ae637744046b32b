package captions

import (
	"errors"
	"strings"
	"testing"

	"github.com/ivlev/frameforge/internal/project"
)

var exportSegments = []project.CaptionSegment{
	{ID: "1", Start: 0, End: 2.5, Text: "Welcome to this demo recording."},
	{ID: "2", Start: 2.5, End: 65.25, Text: "Second line"},
}

func TestExport(t *testing.T) {
	tests := []struct {
		format Format
		want   string
	}{
		{
			FormatVTT,
			"WEBVTT\n\n00:00:00.000 --> 00:00:02.500\nWelcome to this demo recording.\n\n" +
				"00:00:02.500 --> 00:01:05.250\nSecond line\n\n",
		},
		{
			FormatSRT,
			"1\n00:00:00,000 --> 00:00:02,500\nWelcome to this demo recording.\n\n" +
				"2\n00:00:02,500 --> 00:01:05,250\nSecond line\n\n",
		},
		{
			FormatText,
			"Welcome to this demo recording.\n\nSecond line",
		},
	}

	for _, tt := range tests {
		var sb strings.Builder
		if err := Export(&sb, exportSegments, tt.format); err != nil {
			t.Fatalf("%s: Export failed: %v", tt.format, err)
		}
		if sb.String() != tt.want {
			t.Errorf("%s: expected\n%q\ngot\n%q", tt.format, tt.want, sb.String())
		}
	}
}

func TestExportNoCaptions(t *testing.T) {
	var sb strings.Builder
	err := Export(&sb, nil, FormatSRT)
	if !errors.Is(err, ErrNoCaptions) {
		t.Fatalf("Expected ErrNoCaptions, got %v", err)
	}
	if !strings.Contains(err.Error(), "no captions found") {
		t.Errorf("Unexpected error text %q", err.Error())
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"srt": FormatSRT, ".VTT": FormatVTT, "text": FormatText, "txt": FormatText} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q): expected %q, got %q (%v)", in, want, got, err)
		}
	}
	if _, err := ParseFormat("docx"); err == nil {
		t.Error("Expected error for unknown format")
	}
}

func TestTimestampHours(t *testing.T) {
	if got := timestamp(3723.004, ','); got != "01:02:03,004" {
		t.Errorf("Expected 01:02:03,004, got %s", got)
	}
}
