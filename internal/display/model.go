package display

import (
	"fmt"
	"image"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// DefaultFPS — частота обновления по умолчанию.
const DefaultFPS = 30

// Source отдаёт согласованный снимок холста и число закрашенных областей.
// *collector.Raster удовлетворяет этому интерфейсу.
type Source interface {
	Snapshot() (*image.RGBA, int)
}

// frameMsg — сигнал перерисовать кадр.
type frameMsg time.Time

var (
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")).
			Bold(true)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7f7f7f"))
)

// Model — bubbletea-модель живого просмотра холста.
type Model struct {
	source Source
	title  string
	frame  time.Duration

	width  int
	height int

	view     string
	painted  int
	quitting bool
}

// NewModel создаёт модель. fps <= 0 — DefaultFPS.
func NewModel(source Source, title string, fps int) Model {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return Model{
		source: source,
		title:  title,
		frame:  time.Second / time.Duration(fps),
	}
}

// Init запускает таймер кадров.
func (m Model) Init() tea.Cmd {
	return m.tick()
}

// Update обрабатывает клавиши, размер окна и кадры.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.redraw()

	case frameMsg:
		m.redraw()
		return m, m.tick()
	}
	return m, nil
}

// View возвращает кадр и строку статуса.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	status := statusStyle.Render(fmt.Sprintf("Regions: %d", m.painted))
	if m.title != "" {
		status += "  " + titleStyle.Render(m.title)
	}
	if m.view == "" {
		return status
	}
	return m.view + "\n" + status
}

// Painted возвращает число областей на последнем кадре.
func (m Model) Painted() int {
	return m.painted
}

func (m *Model) redraw() {
	img, painted := m.source.Snapshot()
	m.painted = painted

	// последняя строка — статус
	m.view = Render(img, m.width, m.height-1)
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.frame, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}
