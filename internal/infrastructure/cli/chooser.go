package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/doeshing/fif-go/internal/domain"
	"github.com/doeshing/fif-go/internal/ports"
)

// ErrNoPrompt is returned when a choice is needed but neither a flag nor a
// terminal can provide it.
var ErrNoPrompt = errors.New("no terminal to prompt on")

// HuhChooser asks on the controlling terminal.
type HuhChooser struct {
	in  io.Reader
	out io.Writer
}

// NewHuhChooser prompts through in/out, stdin/stderr when nil.
func NewHuhChooser(in io.Reader, out io.Writer) *HuhChooser {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stderr
	}
	return &HuhChooser{in: in, out: out}
}

// ChooseTypes shows a filterable multi-select of ripgrep types with the
// current filter preselected.
func (c *HuhChooser) ChooseTypes(ctx context.Context, options []domain.TypeOption, current []string) ([]string, bool, error) {
	selected := make(map[string]bool, len(current))
	for _, name := range current {
		selected[name] = true
	}

	opts := make([]huh.Option[string], 0, len(options)+1)
	opts = append(opts, huh.NewOption("Clear all", domain.ClearTypeFilterToken))
	for _, o := range options {
		opts = append(opts, huh.NewOption(fmt.Sprintf("%-12s %s", o.Name, o.Globs), o.Name).Selected(selected[o.Name]))
	}

	picked := append([]string(nil), current...)
	field := huh.NewMultiSelect[string]().
		Title("File types").
		Description("Pick types to search; Clear all resets the filter").
		Options(opts...).
		Filterable(true).
		Height(15).
		Value(&picked)
	if ok, err := c.run(ctx, field); !ok || err != nil {
		return nil, false, err
	}
	return picked, true, nil
}

// ChooseTask shows a select of the configured custom tasks.
func (c *HuhChooser) ChooseTask(ctx context.Context, tasks []domain.CustomTask) (domain.CustomTask, bool, error) {
	opts := make([]huh.Option[int], 0, len(tasks))
	for i, t := range tasks {
		opts = append(opts, huh.NewOption(fmt.Sprintf("%s  (%s)", t.Name, t.Command), i))
	}

	var index int
	field := huh.NewSelect[int]().
		Title("Custom task").
		Options(opts...).
		Value(&index)
	if ok, err := c.run(ctx, field); !ok || err != nil {
		return domain.CustomTask{}, false, err
	}
	return tasks[index], true, nil
}

// run reports ok=false when the user aborted the form.
func (c *HuhChooser) run(ctx context.Context, field huh.Field) (bool, error) {
	form := huh.NewForm(huh.NewGroup(field)).
		WithInput(c.in).
		WithOutput(c.out)
	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// FlagChooser answers from command-line flags, for non-interactive use.
type FlagChooser struct {
	Types []string
	Task  string
}

// ChooseTypes returns the --type values.
func (c FlagChooser) ChooseTypes(_ context.Context, options []domain.TypeOption, _ []string) ([]string, bool, error) {
	if len(c.Types) == 0 {
		return nil, false, fmt.Errorf("pass --type: %w", ErrNoPrompt)
	}
	known := make(map[string]bool, len(options))
	for _, o := range options {
		known[o.Name] = true
	}
	for _, t := range c.Types {
		if t != domain.ClearTypeFilterToken && !known[t] {
			return nil, false, fmt.Errorf("unknown file type %q", t)
		}
	}
	return c.Types, true, nil
}

// ChooseTask returns the task named by --task.
func (c FlagChooser) ChooseTask(_ context.Context, tasks []domain.CustomTask) (domain.CustomTask, bool, error) {
	if c.Task == "" {
		return domain.CustomTask{}, false, fmt.Errorf("pass --task: %w", ErrNoPrompt)
	}
	if task, ok := domain.FindCustomTask(tasks, c.Task); ok {
		return task, true, nil
	}
	return domain.CustomTask{}, false, fmt.Errorf("unknown custom task %q", c.Task)
}

// selectChooser prefers flags, then a prompt when stdin and stderr are terminals.
func selectChooser(flags FlagChooser) ports.Chooser {
	if len(flags.Types) > 0 || flags.Task != "" {
		return flags
	}
	if term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stderr.Fd())) {
		return NewHuhChooser(os.Stdin, os.Stderr)
	}
	return flags
}

var (
	_ ports.Chooser = (*HuhChooser)(nil)
	_ ports.Chooser = FlagChooser{}
)
