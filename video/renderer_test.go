package video

import (
	"context"
	"errors"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"storyreel/config"
	"storyreel/script"
)

func testRenderer(t *testing.T, p Prober, runner Runner) *Renderer {
	t.Helper()
	log, _ := observedLogger()
	r, err := NewRenderer(config.Default(), log)
	if err != nil {
		t.Fatalf("NewRenderer error: %v", err)
	}
	r.Builder.Prober = p
	r.Builder.Rand = rand.New(rand.NewSource(3))
	r.Compositor.Runner = runner
	return r
}

func threeScenes() *script.Script {
	return &script.Script{
		VideoTitle: "Test",
		Scenes: []script.Scene{
			{Timestamp: "00:00 - 00:03", Voiceover: "one", SuggestedTransitionEffect: strPtr("fade-in")},
			{Timestamp: "00:03 - 00:07", Voiceover: "two", SuggestedTransitionEffect: strPtr("crossfade")},
			{Timestamp: "00:07 - 00:09", Voiceover: "three", SuggestedTransitionEffect: strPtr("quick cuts")},
		},
	}
}

var threeDurations = map[string]float64{"scene_1.mp3": 3, "scene_2.mp3": 4, "scene_3.mp3": 2}

func TestRenderVideoSumsNarration(t *testing.T) {
	dirs := newSceneDirs(t)
	for _, n := range []string{"1", "2", "3"} {
		dirs.addImage(t, n)
		dirs.addAudio(t, n)
	}
	runner := &fakeRunner{}
	r := testRenderer(t, fakeProber{durations: threeDurations}, runner)
	out := filepath.Join(t.TempDir(), "final.mp4")

	res, err := r.RenderVideo(context.Background(), threeScenes(), dirs.images, dirs.audio, "", out)
	if err != nil {
		t.Fatalf("RenderVideo error: %v", err)
	}
	if res.Duration != 9 || res.Clips != 3 {
		t.Fatalf("Result = %+v; want 9s over 3 clips", res)
	}
	graph := filterComplex(t, runner.lastArgs(t))
	for _, want := range []string{"fade=d=1:st=0:t=in", "fade=d=1:st=3:t=out", "fade=d=0.5:st=1.5:t=out"} {
		if !strings.Contains(graph, want) {
			t.Errorf("graph missing %q", want)
		}
	}
}

func TestRenderVideoSkipsIncompleteScene(t *testing.T) {
	dirs := newSceneDirs(t)
	for _, n := range []string{"1", "2", "3"} {
		dirs.addImage(t, n)
	}
	dirs.addAudio(t, "1")
	dirs.addAudio(t, "3")

	runner := &fakeRunner{}
	r := testRenderer(t, fakeProber{durations: threeDurations}, runner)
	out := filepath.Join(t.TempDir(), "final.mp4")

	res, err := r.RenderVideo(context.Background(), threeScenes(), dirs.images, dirs.audio, "", out)
	if err != nil {
		t.Fatalf("RenderVideo error: %v", err)
	}
	if res.Duration != 5 || res.Clips != 2 {
		t.Fatalf("Result = %+v; want 5s over 2 clips", res)
	}

	var inputs []string
	args := runner.lastArgs(t)
	for i, a := range args {
		if a == "-i" && i+1 < len(args) {
			inputs = append(inputs, filepath.Base(args[i+1]))
		}
	}
	want := []string{"scene_1.png", "scene_1.mp3", "scene_3.png", "scene_3.mp3"}
	if strings.Join(inputs, ",") != strings.Join(want, ",") {
		t.Fatalf("inputs = %v; want %v", inputs, want)
	}
}

func TestRenderVideoNothingToRender(t *testing.T) {
	dirs := newSceneDirs(t)
	runner := &fakeRunner{}
	r := testRenderer(t, fakeProber{durations: threeDurations}, runner)

	_, err := r.RenderVideo(context.Background(), threeScenes(), dirs.images, dirs.audio, "", filepath.Join(t.TempDir(), "final.mp4"))
	if !errors.Is(err, ErrNoClips) {
		t.Fatalf("error = %v; want ErrNoClips", err)
	}
	if len(runner.args) != 0 {
		t.Fatalf("encoder invoked with no clips")
	}
}

func TestRenderVideoCancelled(t *testing.T) {
	dirs := newSceneDirs(t)
	dirs.addImage(t, "1")
	dirs.addAudio(t, "1")
	r := testRenderer(t, fakeProber{durations: threeDurations}, &fakeRunner{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.RenderVideo(ctx, threeScenes(), dirs.images, dirs.audio, "", filepath.Join(t.TempDir(), "final.mp4"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v; want context.Canceled", err)
	}
}

func TestNewRendererRejectsUnknownAddressing(t *testing.T) {
	cfg := config.Default()
	cfg.Assets.Addressing = "fuzzy"
	if _, err := NewRenderer(cfg, nil); err == nil {
		t.Fatalf("expected error for unknown addressing mode")
	}
}
