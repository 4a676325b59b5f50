package video

import (
	"math"
	"math/rand"
	"testing"
)

const eps = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestZoomScale(t *testing.T) {
	cases := []struct {
		name       string
		effect     Effect
		start, end float64
	}{
		{"zoom in", EffectZoomIn, 1, 1.2},
		{"zoom out", EffectZoomOut, 1.2, 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m := NewMotion(c.effect, 1.2, 1920, 1080, 4)
			if got := m.Scale(0); !near(got, c.start) {
				t.Fatalf("Scale(0) = %v; want %v", got, c.start)
			}
			if got := m.Scale(4); !near(got, c.end) {
				t.Fatalf("Scale(d) = %v; want %v", got, c.end)
			}
			if got := m.Scale(2); !near(got, 1.1) {
				t.Fatalf("Scale(d/2) = %v; want 1.1", got)
			}
			prev := m.Scale(0)
			for i := 1; i <= 40; i++ {
				s := m.Scale(float64(i) * 0.1)
				if c.start < c.end && s < prev-eps {
					t.Fatalf("zoom in not monotonic at step %d: %v < %v", i, s, prev)
				}
				if c.start > c.end && s > prev+eps {
					t.Fatalf("zoom out not monotonic at step %d: %v > %v", i, s, prev)
				}
				prev = s
			}
		})
	}
}

func TestZoomRectCentred(t *testing.T) {
	m := NewMotion(EffectZoomIn, 1.2, 1920, 1080, 4)
	r := m.Rect(4)
	if !near(r.W, 1600) || !near(r.H, 900) {
		t.Fatalf("Rect(d) size = %vx%v; want 1600x900", r.W, r.H)
	}
	if !near(r.X, 160) || !near(r.Y, 90) {
		t.Fatalf("Rect(d) origin = (%v, %v); want (160, 90)", r.X, r.Y)
	}
}

func TestPanOffsets(t *testing.T) {
	cases := []struct {
		effect         Effect
		x0, y0, x1, y1 float64
	}{
		{EffectPanLeft, 0, 0, 192, 0},
		{EffectPanRight, 192, 0, 0, 0},
		{EffectPanUp, 0, 0, 0, 108},
		{EffectPanDown, 0, 108, 0, 0},
	}
	for _, c := range cases {
		t.Run(c.effect.String(), func(t *testing.T) {
			m := NewMotion(c.effect, 1.5, 1920, 1080, 3)
			if m.ZoomFactor != 1 {
				t.Fatalf("pan ZoomFactor = %v; want 1", m.ZoomFactor)
			}
			dx, dy := m.Offset(0)
			if !near(dx, c.x0) || !near(dy, c.y0) {
				t.Fatalf("Offset(0) = (%v, %v); want (%v, %v)", dx, dy, c.x0, c.y0)
			}
			dx, dy = m.Offset(3)
			if !near(dx, c.x1) || !near(dy, c.y1) {
				t.Fatalf("Offset(d) = (%v, %v); want (%v, %v)", dx, dy, c.x1, c.y1)
			}

			cw, ch := m.Canvas()
			for _, ts := range []float64{0, 1, 1.5, 3} {
				r := m.Rect(ts)
				if !near(r.W, 1920) || !near(r.H, 1080) {
					t.Fatalf("Rect(%v) size = %vx%v; want full frame", ts, r.W, r.H)
				}
				if r.X < -eps || r.Y < -eps || r.X+r.W > cw+1e-6 || r.Y+r.H > ch+1e-6 {
					t.Fatalf("Rect(%v) = %+v leaves canvas %vx%v", ts, r, cw, ch)
				}
			}
		})
	}
}

func TestZeroDurationIsStatic(t *testing.T) {
	for _, e := range Effects {
		m := NewMotion(e, 1.2, 1280, 720, 0)
		if m.Effect != EffectNone {
			t.Fatalf("%s with zero duration = %s; want none", e, m.Effect)
		}
		if s := m.Scale(0); s != 1 {
			t.Fatalf("%s Scale(0) = %v; want 1", e, s)
		}
		r := m.Rect(0)
		if r != (Rect{X: 0, Y: 0, W: 1280, H: 720}) {
			t.Fatalf("%s Rect(0) = %+v; want full frame", e, r)
		}
	}
}

func TestChooseMotionDeterministic(t *testing.T) {
	a := rand.New(rand.NewSource(42))
	b := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		ma := ChooseMotion(a, 1920, 1080, 5)
		mb := ChooseMotion(b, 1920, 1080, 5)
		if ma != mb {
			t.Fatalf("draw %d differs with same seed: %+v vs %+v", i, ma, mb)
		}
	}
}

func TestChooseMotionCoversPool(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	seen := map[Effect]bool{}
	for i := 0; i < 500; i++ {
		m := ChooseMotion(rng, 1920, 1080, 5)
		seen[m.Effect] = true
		if m.Effect.IsZoom() && (m.ZoomFactor < MinZoomFactor || m.ZoomFactor > MaxZoomFactor) {
			t.Fatalf("zoom factor %v outside [%v, %v]", m.ZoomFactor, MinZoomFactor, MaxZoomFactor)
		}
		if !m.Effect.IsZoom() && m.ZoomFactor != 1 {
			t.Fatalf("%s carries zoom factor %v", m.Effect, m.ZoomFactor)
		}
	}
	if len(seen) != len(Effects) {
		t.Fatalf("saw %d of %d effects in 500 draws", len(seen), len(Effects))
	}
}
