package video

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"storyreel/config"
	"storyreel/logging"
)

// ErrNoClips is returned when no scene produced a clip.
var ErrNoClips = errors.New("no valid video clips created: check that scene images and voiceovers exist")

// Encoding holds the fixed output parameters.
type Encoding struct {
	Width        int
	Height       int
	FPS          int
	VideoCodec   string
	AudioCodec   string
	AudioBitrate string
	Preset       string
	MusicGain    float64
}

// EncodingFrom copies the render section of a config.
func EncodingFrom(rc config.RenderConfig) Encoding {
	return Encoding{
		Width:        rc.Width,
		Height:       rc.Height,
		FPS:          rc.FPS,
		VideoCodec:   rc.VideoCodec,
		AudioCodec:   rc.AudioCodec,
		AudioBitrate: rc.AudioBitrate,
		Preset:       rc.Preset,
		MusicGain:    rc.MusicGain,
	}
}

// DefaultEncoding is 1920x1080 at 24 fps, H.264/AAC, music at 30%.
func DefaultEncoding() Encoding {
	return EncodingFrom(config.Default().Render)
}

// Timeline is the ordered clip sequence plus an optional music bed.
type Timeline struct {
	Clips     []Clip
	MusicPath string
}

// NewTimeline drops the music path when it does not name a regular file.
func NewTimeline(clips []Clip, musicPath string) Timeline {
	tl := Timeline{Clips: clips}
	if musicPath != "" {
		if info, err := os.Stat(musicPath); err == nil && !info.IsDir() {
			tl.MusicPath = musicPath
		}
	}
	return tl
}

// Duration is the sum of clip durations; concatenation adds no gaps.
func (tl Timeline) Duration() float64 {
	var total float64
	for _, c := range tl.Clips {
		total += c.Duration
	}
	return total
}

// Starts returns each clip's start time on the timeline.
func (tl Timeline) Starts() []float64 {
	starts := make([]float64, len(tl.Clips))
	var at float64
	for i, c := range tl.Clips {
		starts[i] = at
		at += c.Duration
	}
	return starts
}

// HasMusic reports whether a music bed will be mixed in.
func (tl Timeline) HasMusic() bool { return tl.MusicPath != "" }

// Result summarises a finished render.
type Result struct {
	OutputPath string  `json:"output_path"`
	Clips      int     `json:"clips"`
	Duration   float64 `json:"duration_sec"`
	MusicMixed bool    `json:"music_mixed"`
}

// Compositor concatenates clips and encodes the timeline.
type Compositor struct {
	Encoding Encoding
	Runner   Runner
	Log      logging.Logger
}

// NewCompositor returns a compositor that shells out to ffmpeg.
func NewCompositor(enc Encoding, log logging.Logger) *Compositor {
	return &Compositor{Encoding: enc, Runner: FFmpegRunner{}, Log: logging.OrNop(log)}
}

// Render writes clips, in order, to outputPath. Music is mixed in at
// Encoding.MusicGain when musicPath exists.
//
// Encoding goes to a hidden sibling file that replaces outputPath only on
// success. On failure neither the partial file nor a stale outputPath is
// left behind.
func (c *Compositor) Render(ctx context.Context, clips []Clip, musicPath, outputPath string) (*Result, error) {
	log := logging.OrNop(c.Log)
	if len(clips) == 0 {
		return nil, ErrNoClips
	}

	tl := NewTimeline(clips, musicPath)
	if musicPath != "" && !tl.HasMusic() {
		log.Infow("background music not found, rendering narration only", "path", musicPath)
	}

	if dir := filepath.Dir(outputPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}

	partial := partialPath(outputPath)
	stream := c.Graph(tl, partial)

	log.Infow("rendering timeline",
		"clips", len(tl.Clips),
		"duration", tl.Duration(),
		"music", tl.HasMusic(),
		"output", outputPath,
	)

	runner := c.Runner
	if runner == nil {
		runner = FFmpegRunner{}
	}
	if err := runner.Run(ctx, stream); err != nil {
		discard(partial, outputPath)
		return nil, fmt.Errorf("encode %s: %w", outputPath, err)
	}
	if info, err := os.Stat(partial); err != nil || info.Size() == 0 {
		discard(partial, outputPath)
		return nil, fmt.Errorf("encode %s: encoder produced no output", outputPath)
	}
	if err := os.Rename(partial, outputPath); err != nil {
		discard(partial, outputPath)
		return nil, fmt.Errorf("finalize %s: %w", outputPath, err)
	}

	log.Infow("video rendered", "output", outputPath, "duration", tl.Duration())
	return &Result{
		OutputPath: outputPath,
		Clips:      len(tl.Clips),
		Duration:   tl.Duration(),
		MusicMixed: tl.HasMusic(),
	}, nil
}

// Graph builds the ffmpeg graph that encodes tl to outputPath.
func (c *Compositor) Graph(tl Timeline, outputPath string) *ffmpeg.Stream {
	enc := c.Encoding

	videos := make([]*ffmpeg.Stream, 0, len(tl.Clips))
	narrations := make([]*ffmpeg.Stream, 0, len(tl.Clips))
	for _, clip := range tl.Clips {
		seg := segmentLength(clip.Duration, enc.FPS)
		img := ffmpeg.Input(clip.ImagePath, ffmpeg.KwArgs{
			"loop":      1,
			"framerate": enc.FPS,
			"t":         num(seg),
		})
		videos = append(videos, clipVideo(img.Video(), clip, seg, enc))
		narrations = append(narrations, fitAudio(normalizeAudio(ffmpeg.Input(clip.AudioPath).Audio()), seg))
	}

	video := ffmpeg.Concat(videos, ffmpeg.KwArgs{"v": 1, "a": 0})
	audio := ffmpeg.Concat(narrations, ffmpeg.KwArgs{"v": 0, "a": 1})

	if tl.HasMusic() {
		music := normalizeAudio(ffmpeg.Input(tl.MusicPath).Audio()).
			Filter("volume", ffmpeg.Args{num(enc.MusicGain)})
		// normalize=0 keeps narration at unity and music at the configured gain;
		// duration=first ends the mix with the narration.
		audio = ffmpeg.Filter([]*ffmpeg.Stream{audio, music}, "amix", nil, ffmpeg.KwArgs{
			"inputs":             2,
			"duration":           "first",
			"dropout_transition": 0,
			"normalize":          0,
		})
	}

	out := ffmpeg.KwArgs{
		"c:v":      enc.VideoCodec,
		"c:a":      enc.AudioCodec,
		"b:a":      enc.AudioBitrate,
		"preset":   enc.Preset,
		"pix_fmt":  "yuv420p",
		"r":        enc.FPS,
		"movflags": "+faststart",
	}
	if filepath.Ext(outputPath) == "" {
		out["f"] = "mp4"
	}
	return ffmpeg.Output([]*ffmpeg.Stream{video, audio}, outputPath, out).OverWriteOutput()
}

// segmentLength rounds a clip up to whole frames. Video and narration are
// both cut to it so each scene's picture and sound start together.
func segmentLength(d float64, fps int) float64 {
	if d <= 0 || fps <= 0 {
		return d
	}
	frames := math.Ceil(d*float64(fps) - 1e-6)
	return frames / float64(fps)
}

// clipVideo normalises the still to the output frame, then applies the
// motion and the transition, and trims to seg seconds.
func clipVideo(img *ffmpeg.Stream, clip Clip, seg float64, enc Encoding) *ffmpeg.Stream {
	v := img.
		Filter("scale", nil, ffmpeg.KwArgs{"w": enc.Width, "h": enc.Height, "force_original_aspect_ratio": "decrease"}).
		Filter("pad", nil, ffmpeg.KwArgs{"w": enc.Width, "h": enc.Height, "x": "(ow-iw)/2", "y": "(oh-ih)/2"}).
		Filter("setsar", ffmpeg.Args{"1"})

	v = applyMotion(v, clip.Motion, enc)
	v = applyTransition(v, clip.Transition, enc)

	return v.
		Filter("format", ffmpeg.Args{"yuv420p"}).
		Filter("fps", ffmpeg.Args{strconv.Itoa(enc.FPS)}).
		Filter("trim", nil, ffmpeg.KwArgs{"duration": num(seg)}).
		Filter("setpts", ffmpeg.Args{"PTS-STARTPTS"})
}

// Filter expressions must stay free of commas: ffmpeg-go escapes ':' and
// '=' inside values, but a bare comma would split the filter chain.

func applyMotion(v *ffmpeg.Stream, m Motion, enc Encoding) *ffmpeg.Stream {
	frames := m.Duration * float64(enc.FPS)
	switch {
	case m.Effect == EffectZoomIn && frames > 0:
		z := fmt.Sprintf("1+%s*on/%s", num(m.ZoomFactor-1), num(frames))
		return zoompan(v, z, enc)
	case m.Effect == EffectZoomOut && frames > 0:
		z := fmt.Sprintf("%s-%s*on/%s", num(m.ZoomFactor), num(m.ZoomFactor-1), num(frames))
		return zoompan(v, z, enc)
	case m.Effect.IsPan() && m.Duration > 0:
		cw := evenCeil(float64(enc.Width) * (1 + PanFraction))
		ch := evenCeil(float64(enc.Height) * (1 + PanFraction))
		maxX := num(float64(enc.Width) * PanFraction)
		maxY := num(float64(enc.Height) * PanFraction)
		d := num(m.Duration)

		x := num(float64(cw-enc.Width) / 2)
		y := num(float64(ch-enc.Height) / 2)
		switch m.Effect {
		case EffectPanLeft:
			x = fmt.Sprintf("%s*t/%s", maxX, d)
		case EffectPanRight:
			x = fmt.Sprintf("%s-%s*t/%s", maxX, maxX, d)
		case EffectPanUp:
			y = fmt.Sprintf("%s*t/%s", maxY, d)
		case EffectPanDown:
			y = fmt.Sprintf("%s-%s*t/%s", maxY, maxY, d)
		}
		return v.
			Filter("scale", nil, ffmpeg.KwArgs{"w": cw, "h": ch}).
			Filter("crop", nil, ffmpeg.KwArgs{"w": enc.Width, "h": enc.Height, "x": x, "y": y})
	default:
		return v
	}
}

func applyTransition(v *ffmpeg.Stream, tr Transition, enc Encoding) *ffmpeg.Stream {
	if tr.ZoomRate > 0 {
		v = zoompan(v, fmt.Sprintf("1+%s*on/%d", num(tr.ZoomRate), enc.FPS), enc)
	}
	if tr.FadeIn > 0 {
		v = v.Filter("fade", nil, ffmpeg.KwArgs{"t": "in", "st": 0, "d": num(tr.FadeIn)})
	}
	if tr.FadeOut > 0 {
		v = v.Filter("fade", nil, ffmpeg.KwArgs{"t": "out", "st": num(tr.FadeOutStart()), "d": num(tr.FadeOut)})
	}
	return v
}

// zoompan emits one output frame per input frame, zoomed about the centre.
func zoompan(v *ffmpeg.Stream, z string, enc Encoding) *ffmpeg.Stream {
	return v.Filter("zoompan", nil, ffmpeg.KwArgs{
		"z":   z,
		"x":   "iw/2-(iw/zoom/2)",
		"y":   "ih/2-(ih/zoom/2)",
		"d":   1,
		"s":   fmt.Sprintf("%dx%d", enc.Width, enc.Height),
		"fps": enc.FPS,
	})
}

// normalizeAudio brings every track to one sample rate and layout so the
// concat and amix filters accept them.
func normalizeAudio(a *ffmpeg.Stream) *ffmpeg.Stream {
	return a.
		Filter("aresample", ffmpeg.Args{"44100"}).
		Filter("aformat", nil, ffmpeg.KwArgs{"channel_layouts": "stereo"})
}

// fitAudio pads narration with silence and cuts it to seg seconds.
func fitAudio(a *ffmpeg.Stream, seg float64) *ffmpeg.Stream {
	return a.
		Filter("apad", nil).
		Filter("atrim", nil, ffmpeg.KwArgs{"duration": num(seg)}).
		Filter("asetpts", ffmpeg.Args{"PTS-STARTPTS"})
}

func partialPath(outputPath string) string {
	dir, base := filepath.Split(outputPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join(dir, fmt.Sprintf(".%s.%s.partial%s", stem, uuid.NewString()[:8], ext))
}

func discard(paths ...string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}

// num prints x rounded to microseconds.
func num(x float64) string {
	return strconv.FormatFloat(math.Round(x*1e6)/1e6, 'f', -1, 64)
}

func evenCeil(x float64) int {
	n := int(math.Ceil(x))
	if n%2 != 0 {
		n++
	}
	return n
}
