package video

import (
	"context"
	"fmt"

	"storyreel/assets"
	"storyreel/config"
	"storyreel/logging"
	"storyreel/script"
)

// Renderer is the pipeline entry point: scenes in, one video file out.
type Renderer struct {
	Builder    *ClipBuilder
	Compositor *Compositor
	Log        logging.Logger
}

// NewRenderer wires a builder and compositor from configuration.
func NewRenderer(cfg *config.Config, log logging.Logger) (*Renderer, error) {
	log = logging.OrNop(log)
	mode, err := assets.ParseMode(cfg.Assets.Addressing)
	if err != nil {
		return nil, err
	}

	b := NewClipBuilder(cfg.Render.Width, cfg.Render.Height, log)
	b.Resolver = assets.Resolver{Mode: mode, Fallback: cfg.Assets.ClosestFallback}
	if cfg.Assets.Prefix != "" {
		b.Prefix = cfg.Assets.Prefix
	}
	if cfg.Assets.ImageExtension != "" {
		b.ImageExt = cfg.Assets.ImageExtension
	}
	if cfg.Assets.AudioExtension != "" {
		b.AudioExt = cfg.Assets.AudioExtension
	}

	return &Renderer{
		Builder:    b,
		Compositor: NewCompositor(EncodingFrom(cfg.Render), log),
		Log:        log,
	}, nil
}

// RenderVideo builds a clip per scene, in script order, and renders them
// to outputPath. Scenes with missing artifacts are skipped; if none
// survive, ErrNoClips is returned and nothing is written.
func (r *Renderer) RenderVideo(ctx context.Context, s *script.Script, imagesDir, audioDir, musicPath, outputPath string) (*Result, error) {
	log := logging.OrNop(r.Log)
	if s == nil {
		return nil, fmt.Errorf("nil script")
	}

	clips := make([]Clip, 0, len(s.Scenes))
	for i, scene := range s.Scenes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		clip, ok := r.Builder.Build(ctx, scene, i, imagesDir, audioDir)
		if !ok {
			continue
		}
		clips = append(clips, clip)
	}

	if len(clips) == 0 {
		log.Errorw("no clips survived, nothing to render", "scenes", len(s.Scenes), "title", s.VideoTitle)
		return nil, ErrNoClips
	}
	if skipped := len(s.Scenes) - len(clips); skipped > 0 {
		log.Warnw("scenes skipped", "skipped", skipped, "kept", len(clips))
	}

	return r.Compositor.Render(ctx, clips, musicPath, outputPath)
}
