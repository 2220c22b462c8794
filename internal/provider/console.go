package provider

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/ShatskikhS/NotifyMe/internal/domain"
)

var (
	bannerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212")).
				Border(lipgloss.DoubleBorder()).
				BorderForeground(lipgloss.Color("63")).
				Padding(0, 2)

	bannerSourceStyle = lipgloss.NewStyle().
				Italic(true).
				Foreground(lipgloss.Color("244")).
				PaddingLeft(1)
)

// ConsoleSender prints a banner followed by the message to w.
type ConsoleSender struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsoleSender(w io.Writer) *ConsoleSender {
	return &ConsoleSender{w: w}
}

func (s *ConsoleSender) Channel() domain.Channel { return domain.ChannelConsole }

func (s *ConsoleSender) Send(_ context.Context, n *domain.Notification) error {
	banner := lipgloss.JoinVertical(lipgloss.Left,
		bannerTitleStyle.Render("Notification"),
		bannerSourceStyle.Render("from "+n.Source),
	)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.w, "%s\n%s\n\n\n\n", banner, n.Message); err != nil {
		return fmt.Errorf("write console notification: %w", err)
	}
	return nil
}

var _ Sender = (*ConsoleSender)(nil)
