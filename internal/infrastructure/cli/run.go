package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/doeshing/fif-go/internal/app"
	"github.com/doeshing/fif-go/internal/application/orchestrator"
	"github.com/doeshing/fif-go/internal/domain"
	"github.com/doeshing/fif-go/internal/infrastructure/editor"
	"github.com/doeshing/fif-go/internal/ports"
)

const (
	// shutdownTimeout bounds session disposal once a command is over.
	shutdownTimeout = 5 * time.Second
	// defaultRunTimeout bounds how long `fif run` waits for a verdict.
	defaultRunTimeout = 30 * time.Minute
)

// ErrSearchFailed is returned when the search ended without a selection.
var ErrSearchFailed = errors.New("search ended without a selection")

type runOptions struct {
	selection string
	folders   []string
	workspace bool
	printOnly bool
	types     []string
	task      string
	timeout   time.Duration
}

func newRunCommand(state *rootState) *cobra.Command {
	var opts runOptions

	names := make([]string, 0, len(orchestrator.CommandNames()))
	for _, name := range orchestrator.CommandNames() {
		names = append(names, string(name))
	}

	cmd := &cobra.Command{
		Use:       "run <command>",
		Short:     "Run one search in the terminal host and open the picked files",
		Long:      "Commands: " + strings.Join(names, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.workspace = cmd.Flags().Changed("folder")
			return runOnce(cmd, state, domain.CommandName(args[0]), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.selection, "selection", "s", "", "Initial query, as if it was selected in the editor")
	cmd.Flags().StringArrayVar(&opts.folders, "folder", nil, "Workspace folder URI (file:///path); repeat for several")
	cmd.Flags().BoolVarP(&opts.printOnly, "print", "p", false, "Print picked files as path:line:column instead of opening them")
	cmd.Flags().StringSliceVarP(&opts.types, "type", "t", nil, "ripgrep types for the *WithType commands, skips the prompt")
	cmd.Flags().StringVar(&opts.task, "task", "", "Custom task name for runCustomTask, skips the prompt")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", defaultRunTimeout, "Give up waiting for the search after this long (0 waits forever)")
	return cmd
}

func runOnce(cmd *cobra.Command, state *rootState, name domain.CommandName, opts runOptions) error {
	container, err := state.opener(false)(cmd)
	if err != nil {
		return err
	}
	defer container.Close()

	ctx := cmd.Context()
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	var target ports.Editor
	if opts.printOnly {
		target = editor.NewPrintEditor(cmd.OutOrStdout())
	} else {
		target, err = editor.NewExecEditor(container.Config.Editor, container.Config.General.ShellPathForTerminal, container.Logger)
		if err != nil {
			return err
		}
	}
	pending := &deferredEditor{}

	loop := orchestrator.NewLoop()
	loopCtx, stopLoop := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = loop.Run(loopCtx)
	}()
	defer func() {
		stopLoop()
		<-loopDone
	}()

	outcomes := make(chan orchestrator.Outcome, 1)
	orch := container.NewOrchestrator(app.Frontend{
		Dispatcher: loop,
		Editor:     pending,
		Notifier:   NewNotifier(cmd.ErrOrStderr()),
		Chooser:    selectChooser(FlagChooser{Types: opts.types, Task: opts.task}),
		OnOutcome: func(o orchestrator.Outcome) {
			select {
			case outcomes <- o:
			default:
			}
		},
	})
	orch.ForwardFocusChanges(loopCtx)

	var uris []string
	if opts.workspace {
		uris = opts.folders
	}
	env := container.Environment(uris)

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := loop.Call(shutdownCtx, func() error { return orch.Deactivate(shutdownCtx) }); err != nil {
			container.Logger.Warn("failed to deactivate", map[string]interface{}{"error": err.Error()})
		}
	}()

	if err := loop.Call(ctx, func() error { return orch.Activate(ctx, container.Config, env) }); err != nil {
		return err
	}

	var dispatch orchestrator.Dispatch
	err = loop.Call(ctx, func() error {
		var execErr error
		dispatch, execErr = orch.Execute(ctx, orchestrator.Invocation{Name: name, Selection: opts.selection})
		return execErr
	})
	if err != nil || !dispatch.Awaiting {
		return err
	}
	container.Logger.Debug("waiting for completion", map[string]interface{}{"command": dispatch.CommandLine})

	outcome, err := awaitOutcome(ctx, cmd.ErrOrStderr(), name, outcomes)
	if err != nil {
		return err
	}
	if err := pending.flush(ctx, target); err != nil {
		return err
	}
	if !opts.printOnly {
		RenderOutcome(cmd.ErrOrStderr(), outcome)
	}
	return outcomeError(outcome)
}

func awaitOutcome(ctx context.Context, out io.Writer, name domain.CommandName, outcomes <-chan orchestrator.Outcome) (orchestrator.Outcome, error) {
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		spinner := NewSpinner(out, fmt.Sprintf("waiting for %s...", name))
		spinner.Start()
		defer spinner.Stop()
	}
	select {
	case o := <-outcomes:
		return o, nil
	case <-ctx.Done():
		return orchestrator.Outcome{}, fmt.Errorf("waiting for %s: %w", name, ctx.Err())
	}
}

func outcomeError(o orchestrator.Outcome) error {
	switch o.Verdict {
	case domain.VerdictSuccess:
		return nil
	case domain.VerdictFailure:
		return ErrSearchFailed
	default:
		if o.Err != nil {
			return fmt.Errorf("%s: %w", o.Verdict, o.Err)
		}
		return fmt.Errorf("search %s", o.Verdict)
	}
}

// deferredEditor collects open requests on the loop and replays them once the
// terminal host has handed the screen back.
type deferredEditor struct {
	mu       sync.Mutex
	requests []domain.OpenRequest
}

func (d *deferredEditor) Open(_ context.Context, req domain.OpenRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requests = append(d.requests, req)
	return nil
}

func (d *deferredEditor) flush(ctx context.Context, target ports.Editor) error {
	d.mu.Lock()
	requests := d.requests
	d.requests = nil
	d.mu.Unlock()

	var errs []error
	for _, req := range requests {
		if err := target.Open(ctx, req); err != nil {
			errs = append(errs, fmt.Errorf("open %s: %w", req.Target.Path, err))
		}
	}
	return errors.Join(errs...)
}
