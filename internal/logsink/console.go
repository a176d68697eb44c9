package logsink

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorPass   = lipgloss.Color("#8BC34A")
	colorFail   = lipgloss.Color("#e53935")
	colorMarker = lipgloss.Color("#2196F3")
	colorInfo   = lipgloss.Color("#FFC107")
)

// Console writes lines to a terminal or any io.Writer. With color enabled,
// PASS, FAIL, session markers and summaries are styled; the renderer falls
// back to plain text when w is not a terminal.
type Console struct {
	w     io.Writer
	color bool

	mu     sync.Mutex
	pass   lipgloss.Style
	fail   lipgloss.Style
	marker lipgloss.Style
	info   lipgloss.Style
}

// NewConsole creates a Console sink writing to w.
func NewConsole(w io.Writer, color bool) *Console {
	r := lipgloss.NewRenderer(w)
	return &Console{
		w:      w,
		color:  color,
		pass:   r.NewStyle().Foreground(colorPass),
		fail:   r.NewStyle().Foreground(colorFail).Bold(true),
		marker: r.NewStyle().Foreground(colorMarker).Bold(true),
		info:   r.NewStyle().Foreground(colorInfo),
	}
}

// Append writes the line, styled if color is enabled.
func (c *Console) Append(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.color {
		line = c.style(line).Render(line)
	}
	if _, err := fmt.Fprintln(c.w, line); err != nil {
		return fmt.Errorf("write console: %w", err)
	}
	return nil
}

func (c *Console) style(line string) lipgloss.Style {
	switch {
	case strings.HasPrefix(line, "======="):
		return c.marker
	case strings.HasPrefix(line, "summary:"):
		return c.info
	case strings.Contains(line, ": FAIL "):
		return c.fail
	case strings.Contains(line, ": PASS "):
		return c.pass
	default:
		return lipgloss.NewStyle()
	}
}

// Close is a no-op; the writer is owned by the caller.
func (c *Console) Close() error {
	return nil
}

func (c *Console) String() string {
	return "console"
}
