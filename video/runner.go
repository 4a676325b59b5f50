package video

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Runner executes a compiled ffmpeg graph.
type Runner interface {
	Run(ctx context.Context, stream *ffmpeg.Stream) error
}

// FFmpegRunner runs the ffmpeg binary found on PATH (or Binary when set).
type FFmpegRunner struct {
	Binary string
	// Stderr, when set, receives ffmpeg's progress output as it runs.
	Stderr io.Writer
}

const stderrTail = 2048

// Run executes the graph and attaches the tail of ffmpeg's stderr to any
// failure.
func (r FFmpegRunner) Run(ctx context.Context, stream *ffmpeg.Stream) error {
	bin := r.Binary
	if bin == "" {
		bin = "ffmpeg"
	}

	var captured bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, stream.GetArgs()...)
	if r.Stderr != nil {
		cmd.Stderr = io.MultiWriter(&captured, r.Stderr)
	} else {
		cmd.Stderr = &captured
	}

	if err := cmd.Run(); err != nil {
		tail := captured.String()
		if len(tail) > stderrTail {
			tail = tail[len(tail)-stderrTail:]
		}
		return fmt.Errorf("ffmpeg failed: %w: %s", err, strings.TrimSpace(tail))
	}
	return nil
}
