package display

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

// Options — настройки Run.
type Options struct {
	Title string
	FPS   int
}

// IsTerminal сообщает, подключён ли f к терминалу.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Run показывает холст в альтернативном экране терминала, пока
// пользователь не нажмёт q/esc/ctrl+c или не отменится ctx.
func Run(ctx context.Context, source Source, opts Options) error {
	model := NewModel(source, opts.Title, opts.FPS)

	p := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("display: %w", err)
	}
	return nil
}
