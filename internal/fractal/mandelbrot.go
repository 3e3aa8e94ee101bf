// Package fractal вычисляет цвет области по алгоритму escape-time
// для множества Мандельброта.
//
// Все функции чистые: без I/O и общего состояния. Один и тот же Region
// на одном и том же холсте всегда даёт один и тот же цвет.
package fractal

import (
	"math"
	"math/cmplx"

	"github.com/shaiso/Mosaic/internal/domain"
)

// Параметры итерации.
const (
	MaxIterations = 100
	EscapeRadius  = 2.0
)

// Окно комплексной плоскости, на которое отображается холст.
const (
	RealMin = -2.5
	RealMax = 1.5
	ImagMin = -2.0
	ImagMax = 2.0
)

// Фазы синусоиды для каналов r, g, b.
var phases = [3]float64{0, 2, 4}

// PixelToComplex линейно отображает пиксель холста в точку окна.
func PixelToComplex(x, y, width, height int) complex128 {
	re := RealMin + float64(x)/float64(width)*(RealMax-RealMin)
	im := ImagMin + float64(y)/float64(height)*(ImagMax-ImagMin)
	return complex(re, im)
}

// Iterations возвращает число итераций z ← z² + c (z₀ = 0) до момента,
// когда |z| впервые превысит EscapeRadius, или MaxIterations, если точка
// не убегает.
func Iterations(c complex128) int {
	var z complex128
	for n := 0; n < MaxIterations; n++ {
		if cmplx.Abs(z) > EscapeRadius {
			return n
		}
		z = z*z + c
	}
	return MaxIterations
}

// Color переводит число итераций в цвет.
//
// MaxIterations — точка во множестве, чёрный. Иначе t = n/Max и
// канал = 255·(0.5 + 0.5·sin(3t + phase)).
func Color(iterations int) domain.Color {
	if iterations >= MaxIterations {
		return domain.Black
	}

	t := float64(iterations) / MaxIterations
	var ch [3]uint8
	for i, phase := range phases {
		ch[i] = uint8(255 * (0.5 + 0.5*math.Sin(3*t+phase)))
	}

	return domain.Color{R: ch[0], G: ch[1], B: ch[2]}
}

// Evaluate вычисляет цвет области по её центральному пикселю.
func Evaluate(r domain.Region, canvasWidth, canvasHeight int) domain.Color {
	center := r.Center()
	c := PixelToComplex(center.X, center.Y, canvasWidth, canvasHeight)
	return Color(Iterations(c))
}
