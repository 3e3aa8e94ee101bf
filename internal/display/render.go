package display

import (
	"image"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/shaiso/Mosaic/internal/domain"
)

// halfBlock — верхняя половина ячейки. Передний план рисует верхний
// пиксель, фон — нижний: две строки картинки на одну строку терминала.
const halfBlock = "▀"

// Render масштабирует картинку до cols × rows ячеек (ближайший сосед)
// и возвращает rows строк по cols символов halfBlock.
func Render(img *image.RGBA, cols, rows int) string {
	bounds := img.Bounds()
	if cols <= 0 || rows <= 0 || bounds.Empty() {
		return ""
	}

	w, h := bounds.Dx(), bounds.Dy()
	pxRows := rows * 2

	var b strings.Builder
	for row := range rows {
		if row > 0 {
			b.WriteByte('\n')
		}

		yTop := bounds.Min.Y + (row*2)*h/pxRows
		yBottom := bounds.Min.Y + (row*2+1)*h/pxRows
		for col := range cols {
			x := bounds.Min.X + col*w/cols
			top := pixel(img, x, yTop)
			bottom := pixel(img, x, yBottom)

			b.WriteString(lipgloss.NewStyle().
				Foreground(lipgloss.Color(top.Hex())).
				Background(lipgloss.Color(bottom.Hex())).
				Render(halfBlock))
		}
	}
	return b.String()
}

func pixel(img *image.RGBA, x, y int) domain.Color {
	c := img.RGBAAt(x, y)
	return domain.Color{R: c.R, G: c.G, B: c.B}
}
