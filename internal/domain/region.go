package domain

import (
	"fmt"
	"image"
)

// Имена четвертей — метки, которые пишутся в поле quarter_name.
const (
	QuarterTopLeft     = "top_left"
	QuarterTopRight    = "top_right"
	QuarterBottomLeft  = "bottom_left"
	QuarterBottomRight = "bottom_right"
)

// subdivisionSuffix добавляется к метке четверти, которую воркер
// возвращает обратно в очередь работ.
const subdivisionSuffix = "_sub"

// Point — координата пикселя на холсте.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Region — прямоугольная область холста вместе с размерами холста.
//
// TopLeft включительно, BottomRight исключительно.
// Region — значимый тип: копируется через каждую границу сообщения
// и никогда не изменяется на месте. Subdivide создаёт четыре новых Region.
type Region struct {
	// Quarter — метка четверти (top_left, top_right_sub, ...).
	Quarter string `json:"quarter_name"`

	TopLeft     Point `json:"top_left"`
	BottomRight Point `json:"bottom_right"`

	CanvasWidth  int `json:"canvas_width"`
	CanvasHeight int `json:"canvas_height"`
}

// Width возвращает ширину области в пикселях.
func (r Region) Width() int {
	return r.BottomRight.X - r.TopLeft.X
}

// Height возвращает высоту области в пикселях.
func (r Region) Height() int {
	return r.BottomRight.Y - r.TopLeft.Y
}

// Center возвращает центральный пиксель (целочисленное деление).
func (r Region) Center() Point {
	return Point{
		X: (r.TopLeft.X + r.BottomRight.X) / 2,
		Y: (r.TopLeft.Y + r.BottomRight.Y) / 2,
	}
}

// Rect возвращает область как image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.TopLeft.X, r.TopLeft.Y, r.BottomRight.X, r.BottomRight.Y)
}

// Pixels возвращает площадь области.
func (r Region) Pixels() int {
	return r.Width() * r.Height()
}

// IsTerminal сообщает, что область больше не делится:
// ширина или высота уже не превышает одного пикселя.
func (r Region) IsTerminal() bool {
	return r.Width() <= 1 || r.Height() <= 1
}

// Splittable сообщает, что область стоит отправлять обратно в очередь:
// и ширина, и высота больше одного пикселя.
func (r Region) Splittable() bool {
	return !r.IsTerminal()
}

// Validate проверяет инвариант 0 <= top_left < bottom_right <= canvas
// по обеим осям.
func (r Region) Validate() error {
	if r.CanvasWidth <= 0 || r.CanvasHeight <= 0 {
		return fmt.Errorf("%w: canvas %dx%d", ErrInvalidRegion, r.CanvasWidth, r.CanvasHeight)
	}
	if r.TopLeft.X < 0 || r.TopLeft.X >= r.BottomRight.X || r.BottomRight.X > r.CanvasWidth {
		return fmt.Errorf("%w: x range [%d, %d) on width %d",
			ErrInvalidRegion, r.TopLeft.X, r.BottomRight.X, r.CanvasWidth)
	}
	if r.TopLeft.Y < 0 || r.TopLeft.Y >= r.BottomRight.Y || r.BottomRight.Y > r.CanvasHeight {
		return fmt.Errorf("%w: y range [%d, %d) on height %d",
			ErrInvalidRegion, r.TopLeft.Y, r.BottomRight.Y, r.CanvasHeight)
	}
	return nil
}

// Subdivide делит область на четыре четверти по целочисленным серединам.
//
// Порядок: top_left, top_right, bottom_left, bottom_right.
// Четверти попарно не пересекаются, их объединение совпадает с областью.
// Для терминальной области возвращает nil.
func (r Region) Subdivide() []Region {
	if r.IsTerminal() {
		return nil
	}

	mid := r.Center()
	tl, br := r.TopLeft, r.BottomRight

	return []Region{
		r.child(QuarterTopLeft, tl, mid),
		r.child(QuarterTopRight, Point{X: mid.X, Y: tl.Y}, Point{X: br.X, Y: mid.Y}),
		r.child(QuarterBottomLeft, Point{X: tl.X, Y: mid.Y}, Point{X: mid.X, Y: br.Y}),
		r.child(QuarterBottomRight, mid, br),
	}
}

func (r Region) child(quarter string, tl, br Point) Region {
	return Region{
		Quarter:      quarter,
		TopLeft:      tl,
		BottomRight:  br,
		CanvasWidth:  r.CanvasWidth,
		CanvasHeight: r.CanvasHeight,
	}
}

// String — для логов.
func (r Region) String() string {
	return fmt.Sprintf("%s (%d,%d)-(%d,%d)",
		r.Quarter, r.TopLeft.X, r.TopLeft.Y, r.BottomRight.X, r.BottomRight.Y)
}

// FullCanvas возвращает область, покрывающую весь холст.
func FullCanvas(width, height int) Region {
	return Region{
		Quarter:      "canvas",
		BottomRight:  Point{X: width, Y: height},
		CanvasWidth:  width,
		CanvasHeight: height,
	}
}

// CanvasQuadrants возвращает разбиение холста глубины 0 — четыре четверти,
// которые Coordinator кладёт в очередь работ.
func CanvasQuadrants(width, height int) ([]Region, error) {
	if width < 2 || height < 2 {
		return nil, fmt.Errorf("%w: %dx%d", ErrCanvasTooSmall, width, height)
	}
	return FullCanvas(width, height).Subdivide(), nil
}

// SubdivisionLabel возвращает метку для четверти, которую воркер
// возвращает в очередь (top_left → top_left_sub).
func SubdivisionLabel(quarter string) string {
	return quarter + subdivisionSuffix
}
