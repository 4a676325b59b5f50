package video

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	ffmpeg "github.com/u2takey/ffmpeg-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// fakeProber answers durations keyed by file base name.
type fakeProber struct {
	durations map[string]float64
	errs      map[string]error
}

func (p fakeProber) Duration(_ context.Context, path string) (float64, error) {
	base := filepath.Base(path)
	if err, ok := p.errs[base]; ok {
		return 0, err
	}
	d, ok := p.durations[base]
	if !ok {
		return 0, errors.New("no such media")
	}
	return d, nil
}

// fakeRunner records the compiled command line and writes a stand-in for
// the encoded file.
type fakeRunner struct {
	mu   sync.Mutex
	args [][]string
	err  error
	// leavePartial writes the output even when returning err.
	leavePartial bool
}

func (r *fakeRunner) Run(_ context.Context, stream *ffmpeg.Stream) error {
	args := stream.GetArgs()
	r.mu.Lock()
	r.args = append(r.args, args)
	r.mu.Unlock()

	if r.err != nil && !r.leavePartial {
		return r.err
	}
	for _, a := range args {
		if strings.Contains(a, ".partial") {
			if err := os.WriteFile(a, []byte("encoded"), 0644); err != nil {
				return err
			}
		}
	}
	return r.err
}

func (r *fakeRunner) lastArgs(t *testing.T) []string {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.args) == 0 {
		t.Fatalf("runner was never invoked")
	}
	return r.args[len(r.args)-1]
}

func observedLogger() (*zap.SugaredLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.InfoLevel)
	return zap.New(core).Sugar(), logs
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 40), G: uint8(y * 40), B: 200, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// filterComplex returns the value passed to -filter_complex.
func filterComplex(t *testing.T, args []string) string {
	t.Helper()
	for i, a := range args {
		if a == "-filter_complex" && i+1 < len(args) {
			return args[i+1]
		}
	}
	t.Fatalf("no -filter_complex in %v", args)
	return ""
}

func hasPair(args []string, flag, value string) bool {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}
