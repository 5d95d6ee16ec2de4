package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the review screen until the queue is done or the user quits.
func Run(ctx context.Context, session Session, opts ...Option) (Summary, error) {
	p := tea.NewProgram(New(ctx, session, opts...), tea.WithAltScreen(), tea.WithContext(ctx))

	final, err := p.Run()
	if err != nil {
		return Summary{}, fmt.Errorf("review screen failed: %w", err)
	}

	m, ok := final.(Model)
	if !ok {
		return Summary{}, fmt.Errorf("unexpected model type %T", final)
	}
	return m.Summary(), m.Err()
}
