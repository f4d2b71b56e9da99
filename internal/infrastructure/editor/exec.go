// Package editor provides ports.Editor adapters for the command-line front-end.
package editor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"text/template"

	"github.com/doeshing/fif-go/internal/domain"
	"github.com/doeshing/fif-go/internal/ports"
)

// Runner starts command through shell with the terminal attached.
type Runner func(ctx context.Context, shell, command string) error

// ExecEditor opens files by running a templated shell command.
type ExecEditor struct {
	withPosition *template.Template
	noPosition   *template.Template
	shell        string
	run          Runner
	logger       ports.Logger
}

// templateData is exposed to the command templates. Line and Column are 1-based.
type templateData struct {
	Path   string
	Line   int
	Column int
}

var funcs = template.FuncMap{"quote": ShellQuote}

// NewExecEditor parses the configured templates. An empty shell means $SHELL,
// then /bin/sh.
func NewExecEditor(settings domain.EditorSettings, shell string, logger ports.Logger) (*ExecEditor, error) {
	withPosition, err := template.New("open_command").Funcs(funcs).Parse(settings.OpenCommand)
	if err != nil {
		return nil, fmt.Errorf("parse editor.open_command: %w", err)
	}
	noPosition := withPosition
	if settings.OpenCommandNoPosition != "" {
		noPosition, err = template.New("open_command_no_position").Funcs(funcs).Parse(settings.OpenCommandNoPosition)
		if err != nil {
			return nil, fmt.Errorf("parse editor.open_command_no_position: %w", err)
		}
	}
	if shell == "" {
		shell = os.Getenv("SHELL")
	}
	if shell == "" {
		shell = "/bin/sh"
	}
	return &ExecEditor{
		withPosition: withPosition,
		noPosition:   noPosition,
		shell:        shell,
		run:          runAttached,
		logger:       logger,
	}, nil
}

// WithRunner replaces how commands are started.
func (e *ExecEditor) WithRunner(run Runner) *ExecEditor {
	e.run = run
	return e
}

// Render returns the shell command for req.
func (e *ExecEditor) Render(req domain.OpenRequest) (string, error) {
	tmpl := e.noPosition
	data := templateData{Path: req.Target.Path, Line: 1, Column: 1}
	if pos := req.Target.Position; pos != nil {
		tmpl = e.withPosition
		data.Line = pos.Line + 1
		data.Column = pos.Column + 1
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", tmpl.Name(), err)
	}
	command := strings.TrimSpace(buf.String())
	if command == "" {
		return "", fmt.Errorf("render %s: empty command", tmpl.Name())
	}
	return command, nil
}

// Open implements ports.Editor.
func (e *ExecEditor) Open(ctx context.Context, req domain.OpenRequest) error {
	command, err := e.Render(req)
	if err != nil {
		return err
	}
	e.logger.Debug("opening editor", map[string]interface{}{"command": command})
	return e.run(ctx, e.shell, command)
}

func runAttached(ctx context.Context, shell, command string) error {
	cmd := exec.CommandContext(ctx, shell, "-c", command)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// ShellQuote wraps s in single quotes for POSIX shells.
func ShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// PrintEditor writes one `path:line:column` line per request instead of
// opening anything. Positions are 1-based; targets without one print the path.
type PrintEditor struct {
	w io.Writer
}

// NewPrintEditor writes to w.
func NewPrintEditor(w io.Writer) *PrintEditor {
	return &PrintEditor{w: w}
}

// Open implements ports.Editor.
func (p *PrintEditor) Open(_ context.Context, req domain.OpenRequest) error {
	if pos := req.Target.Position; pos != nil {
		_, err := fmt.Fprintf(p.w, "%s:%d:%d\n", req.Target.Path, pos.Line+1, pos.Column+1)
		return err
	}
	_, err := fmt.Fprintln(p.w, req.Target.Path)
	return err
}

var (
	_ ports.Editor = (*ExecEditor)(nil)
	_ ports.Editor = (*PrintEditor)(nil)
)
