package video

import (
	"math"
	"math/rand"
)

// Effect is the camera move applied to a still image.
type Effect int

const (
	EffectNone Effect = iota
	EffectZoomIn
	EffectZoomOut
	EffectPanLeft
	EffectPanRight
	EffectPanUp
	EffectPanDown
)

// Effects is the pool a motion is drawn from, each with equal weight.
var Effects = []Effect{
	EffectZoomIn,
	EffectZoomOut,
	EffectPanLeft,
	EffectPanRight,
	EffectPanUp,
	EffectPanDown,
	EffectNone,
}

func (e Effect) String() string {
	switch e {
	case EffectZoomIn:
		return "zoom-in"
	case EffectZoomOut:
		return "zoom-out"
	case EffectPanLeft:
		return "pan-left"
	case EffectPanRight:
		return "pan-right"
	case EffectPanUp:
		return "pan-up"
	case EffectPanDown:
		return "pan-down"
	default:
		return "none"
	}
}

// IsZoom reports whether the effect belongs to the zoom family.
func (e Effect) IsZoom() bool { return e == EffectZoomIn || e == EffectZoomOut }

// IsPan reports whether the effect belongs to the pan family.
func (e Effect) IsPan() bool {
	return e == EffectPanLeft || e == EffectPanRight || e == EffectPanUp || e == EffectPanDown
}

const (
	MinZoomFactor = 1.05
	MaxZoomFactor = 1.20

	// PanFraction is how far a pan travels, as a share of the frame size.
	PanFraction = 0.1
)

// Rect is a crop window in canvas pixels.
type Rect struct {
	X, Y, W, H float64
}

// Motion describes the Ken Burns move for one clip over a frame of
// Width x Height pixels lasting Duration seconds.
type Motion struct {
	Effect     Effect
	ZoomFactor float64
	Width      int
	Height     int
	Duration   float64
}

// ChooseMotion draws an effect and a zoom factor from rng. Both values are
// always drawn so the sequence of choices only depends on the seed.
func ChooseMotion(rng *rand.Rand, width, height int, duration float64) Motion {
	effect := Effects[rng.Intn(len(Effects))]
	zoom := MinZoomFactor + rng.Float64()*(MaxZoomFactor-MinZoomFactor)
	return NewMotion(effect, zoom, width, height, duration)
}

// NewMotion builds a motion for a fixed effect. A non-positive duration
// degrades to a static frame.
func NewMotion(effect Effect, zoomFactor float64, width, height int, duration float64) Motion {
	if duration <= 0 {
		effect = EffectNone
	}
	if !effect.IsZoom() {
		zoomFactor = 1
	}
	return Motion{
		Effect:     effect,
		ZoomFactor: zoomFactor,
		Width:      width,
		Height:     height,
		Duration:   duration,
	}
}

// progress maps t onto [0, 1] across the clip.
func (m Motion) progress(t float64) float64 {
	if m.Duration <= 0 {
		return 0
	}
	return math.Max(0, math.Min(1, t/m.Duration))
}

// Scale is the apparent magnification at time t.
func (m Motion) Scale(t float64) float64 {
	p := m.progress(t)
	switch m.Effect {
	case EffectZoomIn:
		return 1 + (m.ZoomFactor-1)*p
	case EffectZoomOut:
		return m.ZoomFactor - (m.ZoomFactor-1)*p
	default:
		return 1
	}
}

// Offset is the pan displacement of the crop origin at time t.
func (m Motion) Offset(t float64) (dx, dy float64) {
	p := m.progress(t)
	maxX := float64(m.Width) * PanFraction
	maxY := float64(m.Height) * PanFraction
	switch m.Effect {
	case EffectPanLeft:
		return maxX * p, 0
	case EffectPanRight:
		return maxX - maxX*p, 0
	case EffectPanUp:
		return 0, maxY * p
	case EffectPanDown:
		return 0, maxY - maxY*p
	default:
		return 0, 0
	}
}

// Canvas is the size of the surface the crop window moves over. Pans need
// PanFraction of slack on every side of travel, so the frame is enlarged
// uniformly for them.
func (m Motion) Canvas() (w, h float64) {
	if m.Effect.IsPan() {
		return float64(m.Width) * (1 + PanFraction), float64(m.Height) * (1 + PanFraction)
	}
	return float64(m.Width), float64(m.Height)
}

// Rect is the crop window at time t. Zoom shrinks a centred window by the
// current scale; a pan keeps the window at full frame size and slides its
// origin, with the cross axis centred in the slack.
func (m Motion) Rect(t float64) Rect {
	cw, ch := m.Canvas()
	s := m.Scale(t)
	w := float64(m.Width) / s
	h := float64(m.Height) / s
	r := Rect{X: (cw - w) / 2, Y: (ch - h) / 2, W: w, H: h}

	if m.Effect.IsPan() {
		dx, dy := m.Offset(t)
		switch m.Effect {
		case EffectPanLeft, EffectPanRight:
			r.X = dx
		default:
			r.Y = dy
		}
	}
	return r
}
