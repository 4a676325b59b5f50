package video

import (
	"path/filepath"
	"testing"
)

func TestParseProbeDuration(t *testing.T) {
	cases := []struct {
		name    string
		out     string
		want    float64
		wantErr bool
	}{
		{"format duration", `{"format":{"duration":"3.250000"}}`, 3.25, false},
		{"stream fallback", `{"format":{},"streams":[{"codec_type":"video","duration":"9"},{"codec_type":"audio","duration":"2.5"}]}`, 2.5, false},
		{"missing", `{"format":{},"streams":[]}`, 0, true},
		{"not json", `ffprobe: no such file`, 0, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := parseProbeDuration(c.out)
			if c.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseProbeDuration error: %v", err)
			}
			if got != c.want {
				t.Fatalf("parseProbeDuration = %v; want %v", got, c.want)
			}
		})
	}
}

func TestImageSize(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "scene_1.png")
	writePNG(t, good, 6, 4)
	w, h, err := ImageSize(good)
	if err != nil {
		t.Fatalf("ImageSize error: %v", err)
	}
	if w != 6 || h != 4 {
		t.Fatalf("ImageSize = %dx%d; want 6x4", w, h)
	}

	bad := filepath.Join(dir, "scene_2.png")
	writeFile(t, bad, "not an image")
	if _, _, err := ImageSize(bad); err == nil {
		t.Fatalf("expected error for undecodable image")
	}
	if _, _, err := ImageSize(filepath.Join(dir, "missing.png")); err == nil {
		t.Fatalf("expected error for missing image")
	}
}
