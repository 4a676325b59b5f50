package video

import (
	"context"
	"math/rand"
	"time"

	"storyreel/assets"
	"storyreel/logging"
	"storyreel/script"
)

// Clip is one finished scene: a still image shown for the measured length
// of its narration, with motion and transition applied.
type Clip struct {
	Scene      int
	ImagePath  string
	AudioPath  string
	Duration   float64
	Motion     Motion
	Transition Transition
}

// ClipBuilder turns scenes into clips.
type ClipBuilder struct {
	Resolver assets.Resolver
	Prober   Prober
	Rand     *rand.Rand
	Log      logging.Logger

	// Width and Height are the frame size every clip is normalised to.
	Width  int
	Height int

	Prefix   string
	ImageExt string
	AudioExt string
}

// NewClipBuilder returns a builder with ffprobe measurement and a
// time-seeded random source.
func NewClipBuilder(width, height int, log logging.Logger) *ClipBuilder {
	return &ClipBuilder{
		Prober:   FFProbe{},
		Rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
		Log:      logging.OrNop(log),
		Width:    width,
		Height:   height,
		Prefix:   "scene",
		ImageExt: "png",
		AudioExt: "mp3",
	}
}

// Build builds the clip for the scene at position index. ok is false when
// the scene must be skipped: a missing or unreadable image, or narration
// that is missing or cannot be measured.
func (b *ClipBuilder) Build(ctx context.Context, scene script.Scene, index int, imagesDir, audioDir string) (clip Clip, ok bool) {
	log := logging.OrNop(b.Log)
	n := index + 1

	imgPath, found := b.Resolver.Resolve(imagesDir, index, b.Prefix, b.ImageExt)
	if !found {
		log.Warnw("missing image, skipping scene", "scene", n, "dir", imagesDir)
		return Clip{}, false
	}
	audioPath, found := b.Resolver.Resolve(audioDir, index, b.Prefix, b.AudioExt)
	if !found {
		log.Warnw("missing voiceover, skipping scene", "scene", n, "dir", audioDir)
		return Clip{}, false
	}

	srcW, srcH, err := ImageSize(imgPath)
	if err != nil {
		log.Warnw("unreadable image, skipping scene", "scene", n, "path", imgPath, "error", err)
		return Clip{}, false
	}

	duration, err := b.Prober.Duration(ctx, audioPath)
	if err != nil {
		log.Warnw("cannot measure voiceover, skipping scene", "scene", n, "path", audioPath, "error", err)
		return Clip{}, false
	}
	if duration <= 0 {
		log.Warnw("empty voiceover, skipping scene", "scene", n, "path", audioPath)
		return Clip{}, false
	}

	if nominal, err := scene.NominalDuration(); err != nil {
		log.Warnw("unparseable timestamp, using narration length", "scene", n, "error", err)
	} else if nominal != duration {
		log.Infow("narration length overrides timestamp", "scene", n, "nominal", nominal, "measured", duration)
	}

	motion := ChooseMotion(b.rand(), b.Width, b.Height, duration)
	kind := ParseTransition(scene.TransitionLabel())

	log.Infow("scene clip ready",
		"scene", n,
		"image", imgPath,
		"source_size", [2]int{srcW, srcH},
		"duration", duration,
		"motion", motion.Effect.String(),
		"transition", kind.String(),
	)

	return Clip{
		Scene:      n,
		ImagePath:  imgPath,
		AudioPath:  audioPath,
		Duration:   duration,
		Motion:     motion,
		Transition: NewTransition(kind, duration),
	}, true
}

func (b *ClipBuilder) rand() *rand.Rand {
	if b.Rand == nil {
		b.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return b.Rand
}
