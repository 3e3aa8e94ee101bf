package collector

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"sync"

	"github.com/shaiso/Mosaic/internal/domain"
)

// Raster — холст height × width, в который рисуются результаты.
//
// Писатель один (цикл Collector.Run), читателей несколько (дисплей,
// экспорт, HTTP). Читатели получают согласованную копию через Snapshot.
type Raster struct {
	mu      sync.RWMutex
	img     *image.RGBA
	painted int
}

// NewRaster создаёт чёрный непрозрачный холст.
func NewRaster(width, height int) (*Raster, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: raster %dx%d", domain.ErrInvalidRegion, width, height)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(domain.Black.RGBA()), image.Point{}, draw.Src)
	return &Raster{img: img}, nil
}

// Bounds возвращает размеры холста.
func (r *Raster) Bounds() image.Rectangle {
	return r.img.Bounds()
}

// Paint закрашивает прямоугольник, обрезанный по границам холста.
// Возвращает фактически закрашенную часть (может быть пустой).
func (r *Raster) Paint(rect image.Rectangle, c domain.Color) image.Rectangle {
	r.mu.Lock()
	defer r.mu.Unlock()

	clipped := rect.Canon().Intersect(r.img.Bounds())
	if clipped.Empty() {
		return clipped
	}
	draw.Draw(r.img, clipped, image.NewUniform(c.RGBA()), image.Point{}, draw.Src)
	r.painted++
	return clipped
}

// Painted возвращает число Paint, которые закрасили хотя бы один пиксель.
// Это число применённых результатов, а не различных областей: повторная
// доставка одного результата считается дважды.
func (r *Raster) Painted() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.painted
}

// At возвращает цвет пикселя. Вне холста — чёрный.
func (r *Raster) At(x, y int) domain.Color {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !(image.Point{X: x, Y: y}).In(r.img.Bounds()) {
		return domain.Black
	}
	px := r.img.RGBAAt(x, y)
	return domain.Color{R: px.R, G: px.G, B: px.B}
}

// Snapshot возвращает копию холста и число закрашенных областей
// на момент копирования.
func (r *Raster) Snapshot() (*image.RGBA, int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	img := &image.RGBA{
		Pix:    make([]uint8, len(r.img.Pix)),
		Stride: r.img.Stride,
		Rect:   r.img.Rect,
	}
	copy(img.Pix, r.img.Pix)
	return img, r.painted
}

// EncodePNG пишет снимок холста в формате PNG.
func (r *Raster) EncodePNG(w io.Writer) error {
	img, _ := r.Snapshot()
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
