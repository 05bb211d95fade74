package timeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ivlev/takeone/internal/composer"
	"github.com/ivlev/takeone/internal/renderer"
)

func TestComputeOverlayIntervals(t *testing.T) {
	six := []Segment{
		{Order: 0, Kind: composer.Intro, Duration: 3},
		{Order: 1, Kind: composer.Announcement, Duration: 4},
		{Order: 2, Kind: composer.HowItWorks, Duration: 4},
		{Order: 3, Kind: composer.Persona, Duration: 3},
		{Order: 4, Kind: composer.Demo, Duration: 4},
		{Order: 5, Kind: composer.Closing, Duration: 2},
	}
	tests := []struct {
		name   string
		segs   []Segment
		output float64
		want   []renderer.Window
	}{
		{"intro and closing", six, 20, []renderer.Window{{Start: 0, End: 3}, {Start: 18, End: 20}}},
		{"output unknown uses sum", six, 0, []renderer.Window{{Start: 0, End: 3}, {Start: 18, End: 20}}},
		{"probed output wins", six, 20.4, []renderer.Window{{Start: 0, End: 3}, {Start: 18.4, End: 20.4}}},
		{
			"unknown closing omitted",
			[]Segment{{Order: 0, Kind: composer.Intro, Duration: 3}, {Order: 1, Kind: composer.Closing}},
			10,
			[]renderer.Window{{Start: 0, End: 3}},
		},
		{
			"untagged uses first and last",
			[]Segment{{Order: 2, Duration: 2}, {Order: 0, Duration: 5}, {Order: 1, Duration: 1}},
			8,
			[]renderer.Window{{Start: 0, End: 5}, {Start: 6, End: 8}},
		},
		{
			"tagged without intro",
			[]Segment{{Order: 0, Kind: composer.Demo, Duration: 5}, {Order: 1, Kind: composer.Closing, Duration: 2}},
			7,
			[]renderer.Window{{Start: 5, End: 7}},
		},
		{
			"single segment merges",
			[]Segment{{Order: 0, Duration: 4}},
			4,
			[]renderer.Window{{Start: 0, End: 4}},
		},
		{
			"intro clamped to output",
			[]Segment{{Order: 0, Kind: composer.Intro, Duration: 9}, {Order: 1, Kind: composer.Closing, Duration: 1}},
			5,
			[]renderer.Window{{Start: 0, End: 5}},
		},
		{"empty", nil, 10, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeOverlayIntervals(tt.segs, tt.output)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if abs(got[i].Start-tt.want[i].Start) > 1e-9 || abs(got[i].End-tt.want[i].End) > 1e-9 {
					t.Errorf("interval %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSortedIsStable(t *testing.T) {
	in := []Segment{{Order: 1, Path: "b"}, {Order: 0, Path: "a"}, {Order: 1, Path: "c"}}
	got := Sorted(in)
	if got[0].Path != "a" || got[1].Path != "b" || got[2].Path != "c" {
		t.Errorf("sorted = %v", got)
	}
	if in[0].Path != "b" {
		t.Error("input mutated")
	}
}

func TestManifestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "video.yaml")
	off := false
	m := &Manifest{
		Version:   "1",
		Output:    "final.mp4",
		Watermark: &off,
		Segments: []Segment{
			{Order: 0, Kind: composer.Intro, Path: "intro.mp4"},
			{Order: 1, Kind: composer.Closing, Path: "/abs/closing.mp4", Duration: 2},
		},
	}
	if err := WriteManifest(m, path); err != nil {
		t.Fatal(err)
	}
	got, err := ReadManifest(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Segments[0].Path != filepath.Join(dir, "intro.mp4") || got.Segments[1].Path != "/abs/closing.mp4" {
		t.Errorf("paths = %v", got.Segments)
	}
	if got.Watermark == nil || *got.Watermark || got.Segments[1].Kind != composer.Closing {
		t.Errorf("manifest = %+v", got)
	}
}

func TestReadManifestErrors(t *testing.T) {
	if _, err := ReadManifest(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(bad, []byte("segments: [oops"), 0644)
	if _, err := ReadManifest(bad); err == nil {
		t.Error("expected parse error")
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
