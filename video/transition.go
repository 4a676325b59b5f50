package video

import (
	"math"
	"strings"
)

// TransitionKind is the resolved form of a scene's transition hint.
type TransitionKind int

const (
	TransitionNone TransitionKind = iota
	TransitionFadeIn
	TransitionCrossfade
	TransitionZoomOut
	TransitionQuickCuts
)

const (
	FadeSeconds     = 1.0
	QuickCutSeconds = 0.5
	ZoomOutRate     = 0.05
)

// ParseTransition maps a label to a kind; matching ignores case and
// surrounding space. Unknown labels mean no transition.
func ParseTransition(label string) TransitionKind {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "fade-in":
		return TransitionFadeIn
	case "crossfade":
		return TransitionCrossfade
	case "zoom out":
		return TransitionZoomOut
	case "quick cuts":
		return TransitionQuickCuts
	default:
		return TransitionNone
	}
}

func (k TransitionKind) String() string {
	switch k {
	case TransitionFadeIn:
		return "fade-in"
	case TransitionCrossfade:
		return "crossfade"
	case TransitionZoomOut:
		return "zoom out"
	case TransitionQuickCuts:
		return "quick cuts"
	default:
		return "none"
	}
}

// Transition is the opacity envelope and extra scale applied to one clip.
//
// Crossfade is rendered as a fade-out at the end plus a fade-in at the start
// of the same clip. Clips are concatenated without overlap, so two
// neighbouring clips never dissolve into each other.
type Transition struct {
	Kind     TransitionKind
	Duration float64
	FadeIn   float64
	FadeOut  float64
	ZoomRate float64
}

// NewTransition sizes the envelope for a clip of the given duration. Fade
// lengths never exceed the clip.
func NewTransition(kind TransitionKind, duration float64) Transition {
	tr := Transition{Kind: kind, Duration: duration}
	clamp := func(d float64) float64 { return math.Max(0, math.Min(d, duration)) }

	switch kind {
	case TransitionFadeIn:
		tr.FadeIn = clamp(FadeSeconds)
	case TransitionCrossfade:
		tr.FadeIn = clamp(FadeSeconds)
		tr.FadeOut = clamp(FadeSeconds)
	case TransitionZoomOut:
		tr.ZoomRate = ZoomOutRate
	case TransitionQuickCuts:
		tr.FadeOut = clamp(QuickCutSeconds)
	}
	return tr
}

// Opacity is the visibility of the clip at time t, in [0, 1].
func (tr Transition) Opacity(t float64) float64 {
	o := 1.0
	if tr.FadeIn > 0 && t < tr.FadeIn {
		o = math.Min(o, math.Max(0, t/tr.FadeIn))
	}
	if tr.FadeOut > 0 {
		start := tr.Duration - tr.FadeOut
		if t > start {
			o = math.Min(o, math.Max(0, (tr.Duration-t)/tr.FadeOut))
		}
	}
	return o
}

// Scale is the extra magnification stacked on the clip's motion.
func (tr Transition) Scale(t float64) float64 {
	return 1 + tr.ZoomRate*math.Max(0, t)
}

// FadeOutStart is when the closing fade begins.
func (tr Transition) FadeOutStart() float64 {
	return math.Max(0, tr.Duration-tr.FadeOut)
}
