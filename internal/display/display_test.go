package display

import (
	"image"
	"image/color"
	"os"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	img     *image.RGBA
	painted int
}

func (f *fakeSource) Snapshot() (*image.RGBA, int) {
	return f.img, f.painted
}

func newSource(w, h, painted int) *fakeSource {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return &fakeSource{img: img, painted: painted}
}

func TestRender_Dimensions(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 800, 600))

	out := Render(img, 10, 4)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 4)
	for _, line := range lines {
		assert.Equal(t, 10, strings.Count(line, halfBlock))
	}
}

func TestRender_Empty(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	assert.Empty(t, Render(img, 0, 10))
	assert.Empty(t, Render(img, 10, 0))
	assert.Empty(t, Render(image.NewRGBA(image.Rectangle{}), 10, 10))
}

func TestPixel(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.SetRGBA(1, 1, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	c := pixel(img, 1, 1)
	assert.Equal(t, "#0a141e", c.Hex())
}

func TestModel_WindowSizeAndFrame(t *testing.T) {
	src := newSource(16, 16, 3)
	m := NewModel(src, "", 0)
	assert.Equal(t, DefaultFPS, int(1e9/m.frame.Nanoseconds()))

	next, _ := m.Update(tea.WindowSizeMsg{Width: 8, Height: 5})
	m = next.(Model)
	assert.Equal(t, 3, m.Painted())

	view := m.View()
	lines := strings.Split(view, "\n")
	require.Len(t, lines, 5, "four image rows and a status line")
	assert.Contains(t, lines[4], "Regions: 3")

	src.painted = 7
	next, cmd := m.Update(frameMsg{})
	m = next.(Model)
	assert.NotNil(t, cmd, "next frame scheduled")
	assert.Contains(t, m.View(), "Regions: 7")
}

func TestModel_QuitKeys(t *testing.T) {
	keys := []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune{'q'}},
		{Type: tea.KeyEsc},
		{Type: tea.KeyCtrlC},
	}

	for _, key := range keys {
		t.Run(key.String(), func(t *testing.T) {
			m := NewModel(newSource(4, 4, 0), "", 30)
			next, cmd := m.Update(key)
			require.NotNil(t, cmd)
			assert.Equal(t, tea.Quit(), cmd())
			assert.Empty(t, next.(Model).View())
		})
	}
}

func TestModel_OtherKeysIgnored(t *testing.T) {
	m := NewModel(newSource(4, 4, 0), "mosaic", 30)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	assert.Nil(t, cmd)
	assert.Contains(t, next.(Model).View(), "mosaic")
}

func TestIsTerminal_File(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()

	assert.False(t, IsTerminal(f))
}
