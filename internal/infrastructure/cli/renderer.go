package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/doeshing/fif-go/internal/application/orchestrator"
	"github.com/doeshing/fif-go/internal/domain"
	"github.com/doeshing/fif-go/internal/ports"
)

var levelStyles = map[domain.MessageLevel]lipgloss.Style{
	domain.MessageInfo:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
	domain.MessageWarning: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3")),
	domain.MessageError:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
}

// Notifier prints user-facing messages, one per line, with a styled level tag.
type Notifier struct {
	mu  sync.Mutex
	out io.Writer
}

// NewNotifier writes to out.
func NewNotifier(out io.Writer) *Notifier {
	return &Notifier{out: out}
}

// Notify implements ports.Notifier.
func (n *Notifier) Notify(level domain.MessageLevel, text string) {
	style, ok := levelStyles[level]
	if !ok {
		style = levelStyles[domain.MessageInfo]
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.out, "%s %s\n", style.Render(string(level)+":"), text)
}

// RenderOutcome summarises a finished search.
func RenderOutcome(out io.Writer, o orchestrator.Outcome) {
	switch o.Verdict {
	case domain.VerdictSuccess:
		fmt.Fprintf(out, "%s %s: opened %d file(s)\n", levelStyles[domain.MessageInfo].Render("done"), o.Command, o.Opened)
	case domain.VerdictFailure:
		fmt.Fprintf(out, "%s %s: nothing selected\n", levelStyles[domain.MessageWarning].Render("done"), o.Command)
	default:
		fmt.Fprintf(out, "%s %s: %s\n", levelStyles[domain.MessageError].Render("aborted"), o.Command, o.Verdict)
	}
}

var _ ports.Notifier = (*Notifier)(nil)
