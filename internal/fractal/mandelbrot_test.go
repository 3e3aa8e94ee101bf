package fractal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shaiso/Mosaic/internal/domain"
)

func TestIterations_InsideMainCardioid(t *testing.T) {
	assert.Equal(t, MaxIterations, Iterations(complex(-0.5, 0)))
	assert.Equal(t, MaxIterations, Iterations(0))
	assert.Equal(t, domain.Black, Color(Iterations(complex(-0.5, 0))))
}

func TestIterations_FarOutside(t *testing.T) {
	n := Iterations(complex(2, 2))
	assert.Less(t, n, 5)
	assert.Equal(t, 1, n)

	assert.Less(t, Iterations(complex(-2.5, -2)), 5)
}

func TestPixelToComplex(t *testing.T) {
	tests := []struct {
		x, y int
		want complex128
	}{
		{0, 0, complex(-2.5, -2.0)},
		{800, 600, complex(1.5, 2.0)},
		{400, 300, complex(-0.5, 0)},
		{200, 150, complex(-1.5, -1.0)},
	}

	for _, tt := range tests {
		got := PixelToComplex(tt.x, tt.y, 800, 600)
		assert.InDelta(t, real(tt.want), real(got), 1e-12, "re at (%d,%d)", tt.x, tt.y)
		assert.InDelta(t, imag(tt.want), imag(got), 1e-12, "im at (%d,%d)", tt.x, tt.y)
	}
}

func TestColor_Gradient(t *testing.T) {
	// t = 0: sin(0), sin(2), sin(4)
	got := Color(0)
	want := domain.Color{
		R: 127,
		G: uint8(255 * (0.5 + 0.5*math.Sin(2))),
		B: uint8(255 * (0.5 + 0.5*math.Sin(4))),
	}
	assert.Equal(t, want, got)

	assert.Equal(t, domain.Color{R: 127, G: 243, B: 31}, got)
}

func TestColor_NeverBlackOutsideSet(t *testing.T) {
	for n := 0; n < MaxIterations; n++ {
		assert.NotEqual(t, domain.Black, Color(n), "iterations %d", n)
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	quads, err := domain.CanvasQuadrants(800, 600)
	assert.NoError(t, err)

	for _, q := range quads {
		for _, sub := range append([]domain.Region{q}, q.Subdivide()...) {
			first := Evaluate(sub, 800, 600)
			second := Evaluate(sub, 800, 600)
			assert.Equal(t, first, second, "region %s", sub)
		}
	}
}

func TestEvaluate_UsesCenterPixel(t *testing.T) {
	// Центр (400,300) → c = -0.5+0i → во множестве.
	r := domain.Region{
		TopLeft:      domain.Point{X: 399, Y: 299},
		BottomRight:  domain.Point{X: 401, Y: 301},
		CanvasWidth:  800,
		CanvasHeight: 600,
	}
	assert.Equal(t, domain.Black, Evaluate(r, 800, 600))

	// Центр (0,0) → c = -2.5-2i → убегает сразу.
	corner := domain.Region{
		BottomRight:  domain.Point{X: 1, Y: 1},
		CanvasWidth:  800,
		CanvasHeight: 600,
	}
	assert.Equal(t, Color(1), Evaluate(corner, 800, 600))
}
