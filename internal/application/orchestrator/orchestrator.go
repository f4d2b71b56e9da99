// Package orchestrator wires the search core together: it resolves search
// roots, builds and sends command lines, and reacts to completion verdicts.
//
// Every exported method must run on the Loop goroutine. Watch callbacks and
// host notifications are forwarded onto the loop as closures.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/doeshing/fif-go/internal/application/cmdline"
	"github.com/doeshing/fif-go/internal/application/completion"
	"github.com/doeshing/fif-go/internal/application/doctor"
	"github.com/doeshing/fif-go/internal/application/focus"
	"github.com/doeshing/fif-go/internal/application/locations"
	"github.com/doeshing/fif-go/internal/application/navigator"
	"github.com/doeshing/fif-go/internal/application/session"
	"github.com/doeshing/fif-go/internal/domain"
	"github.com/doeshing/fif-go/internal/ports"
)

// EnvInvocation carries the invocation id into the terminal.
const EnvInvocation = "FIF_INVOCATION"

// Options collects the orchestrator's collaborators.
type Options struct {
	Host       ports.TerminalHost
	Watcher    ports.Watcher
	Clock      ports.Clock
	Dispatcher ports.Dispatcher
	Editor     ports.Editor
	Notifier   ports.Notifier
	Chooser    ports.Chooser
	Executor   ports.CommandExecutor
	Cache      ports.CacheRepository
	History    ports.HistoryRepository
	Selection  ports.SelectionWriter
	Logger     ports.Logger
	Platform   domain.Platform
	// TempRoot is the parent of session directories, os.TempDir() when empty.
	TempRoot string
	// OnOutcome observes every handled completion. Optional.
	OnOutcome func(Outcome)
}

// Invocation is one user-triggered command.
type Invocation struct {
	Name      domain.CommandName
	Selection string
}

// Dispatch describes what Execute sent to the terminal.
type Dispatch struct {
	CommandLine string
	// Awaiting is true when a completion verdict will follow.
	Awaiting bool
}

// Outcome is reported after a completion has been handled.
type Outcome struct {
	Command domain.CommandName
	Verdict domain.Verdict
	Opened  int
	Err     error
}

type invocation struct {
	id         string
	name       domain.CommandName
	line       string
	resumable  bool
	typeFilter []string
	started    time.Time
}

// Orchestrator owns the process-wide search state.
type Orchestrator struct {
	opts Options

	table     map[domain.CommandName]domain.CommandDescriptor
	scripts   map[domain.CommandName]string
	session   *session.Manager
	builder   *cmdline.Builder
	navigator *navigator.Navigator
	focus     *focus.Controller
	doctor    *doctor.Service
	channel   *completion.Channel

	cfg          domain.Config
	env          locations.Environment
	roots        domain.SearchRoots
	activated    bool
	flightPassed bool
	lastCommand  domain.CommandName
	typeFilter   []string
	inflight     *invocation
}

// New creates an orchestrator. Nothing runs until Activate.
func New(opts Options) *Orchestrator {
	return &Orchestrator{
		opts:  opts,
		table: CommandTable(),
		session: session.NewManager(session.Options{
			Host:       opts.Host,
			Clock:      opts.Clock,
			Dispatcher: opts.Dispatcher,
			Logger:     opts.Logger,
			TempRoot:   opts.TempRoot,
		}),
		builder:   cmdline.NewBuilder(opts.Platform, opts.Selection, opts.Logger),
		navigator: navigator.New(opts.Editor, opts.Notifier, opts.Logger, opts.Platform),
		focus:     focus.New(opts.Host, opts.Logger),
		doctor: &doctor.Service{
			Executor: opts.Executor,
			Host:     opts.Host,
			Logger:   opts.Logger,
			Platform: opts.Platform,
		},
	}
}

// Activate binds scripts, resolves search roots and starts the session.
func (o *Orchestrator) Activate(ctx context.Context, cfg domain.Config, env locations.Environment) error {
	if err := o.bind(cfg); err != nil {
		o.opts.Logger.Error("Activation failed", err, nil)
		return err
	}
	o.cfg = cfg.Clone()
	o.env = env
	o.activated = true
	o.resolveRoots()
	o.opts.Logger.Info("Plugin initialized with key settings:", map[string]interface{}{
		"searchPaths": o.roots.Paths,
		"host":        o.opts.Host.Name(),
	})
	return o.reinitialize(ctx)
}

// Deactivate disposes the session and removes its files.
func (o *Orchestrator) Deactivate(ctx context.Context) error {
	o.closeChannel()
	o.inflight = nil
	o.activated = false
	return o.session.Dispose(ctx)
}

// OnSettingsChanged installs a new configuration snapshot and recreates the session.
func (o *Orchestrator) OnSettingsChanged(ctx context.Context, cfg domain.Config) error {
	if err := o.bind(cfg); err != nil {
		return o.fail(err)
	}
	o.cfg = cfg.Clone()
	o.resolveRoots()
	return o.reinitialize(ctx)
}

// OnWorkspaceFoldersChanged rebuilds the search roots only.
func (o *Orchestrator) OnWorkspaceFoldersChanged(folders []domain.WorkspaceFolder) {
	o.opts.Logger.Info("workspace folders changed", map[string]interface{}{"folders": len(folders)})
	o.env.Folders = folders
	o.resolveRoots()
}

// OnActiveTerminalChanged feeds a host focus notification to the focus controller.
func (o *Orchestrator) OnActiveTerminalChanged(ctx context.Context, ref domain.TerminalRef) {
	o.focus.OnActiveTerminalChanged(ctx, ref)
}

// ForwardFocusChanges posts the host's focus notifications onto the loop until ctx ends.
func (o *Orchestrator) ForwardFocusChanges(ctx context.Context) {
	changes := o.opts.Host.ActiveTerminalChanges()
	if changes == nil {
		return
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ref, ok := <-changes:
				if !ok {
					return
				}
				o.opts.Dispatcher.Post(func() { o.OnActiveTerminalChanged(ctx, ref) })
			}
		}
	}()
}

// Execute runs one command end to end up to sending it to the terminal.
func (o *Orchestrator) Execute(ctx context.Context, inv Invocation) (Dispatch, error) {
	if !o.activated {
		return Dispatch{}, o.fail(domain.ErrSessionAbsent)
	}
	if !o.flightPassed && !o.cfg.Advanced.DisableStartupChecks {
		if err := o.reinitialize(ctx); err != nil {
			return Dispatch{}, err
		}
	}

	desc, ok := o.table[inv.Name]
	if !ok {
		return Dispatch{}, o.fail(fmt.Errorf("%s: %w", inv.Name, domain.ErrUnknownCommand))
	}

	target := desc
	if desc.Resume {
		if o.opts.Platform.IsWindows() {
			return Dispatch{}, o.fail(domain.ErrResumeUnsupported)
		}
		last, ok := o.lastResumable()
		if !ok {
			return Dispatch{}, o.fail(domain.ErrNothingToResume)
		}
		target = o.table[last]
	} else if desc.Resumable {
		o.lastCommand = desc.Name
	}

	useTypeFilter := false
	switch target.Kind {
	case domain.KindCustomTask:
		return o.runCustomTask(ctx)
	case domain.KindNeedsPreSelection:
		chosen, err := o.chooseTypes(ctx)
		if err != nil {
			return Dispatch{}, o.fail(err)
		}
		if !chosen {
			o.opts.Logger.Debug("Type filter dismissed", nil)
			return Dispatch{}, nil
		}
		useTypeFilter = true
	case domain.KindSimple:
	}

	if err := o.ensureSession(ctx); err != nil {
		return Dispatch{}, o.fail(err)
	}

	if target.WritesExplainFile {
		if err := o.writeExplain(); err != nil {
			return Dispatch{}, o.fail(err)
		}
	}

	id := uuid.NewString()
	req := domain.CommandRequest{
		Name:              target.Name,
		ScriptPath:        o.scripts[target.Name],
		ExtraEnv:          map[string]string{EnvInvocation: id},
		UsesSelectionText: true,
		Selection:         inv.Selection,
		ForceNoSelection:  target.ForceNoSelection,
		IsResumed:         desc.Resume,
		WithArgs:          true,
	}
	if useTypeFilter {
		req.TypeFilter = append([]string(nil), o.typeFilter...)
	}

	line, err := o.builder.Build(req, o.session.Paths(), o.roots, o.cfg.Selection())
	if err != nil {
		return Dispatch{}, o.fail(err)
	}
	if err := o.session.SendCommand(ctx, line); err != nil {
		return Dispatch{}, o.fail(err)
	}
	if o.cfg.General.ShowMaximizedTerminal {
		if err := o.session.Maximize(ctx); err != nil {
			o.opts.Logger.Warn("failed to maximize terminal", map[string]interface{}{"error": err.Error()})
		}
	}
	if o.cfg.General.RestoreFocusTerminal {
		o.focus.Remember(ctx, o.session.Terminal())
	}
	if err := o.session.Show(ctx); err != nil {
		o.opts.Logger.Warn("failed to show terminal", map[string]interface{}{"error": err.Error()})
	}

	o.inflight = &invocation{
		id:         id,
		name:       target.Name,
		line:       line,
		resumable:  target.Resumable,
		typeFilter: req.TypeFilter,
		started:    o.opts.Clock.Now(),
	}
	return Dispatch{CommandLine: line, Awaiting: true}, nil
}

// Roots returns the current search roots.
func (o *Orchestrator) Roots() domain.SearchRoots { return o.roots }

// Session exposes the session manager.
func (o *Orchestrator) Session() *session.Manager { return o.session }

// Config returns the active configuration snapshot.
func (o *Orchestrator) Config() domain.Config { return o.cfg }

// FlightCheck runs the diagnostics without touching the session.
func (o *Orchestrator) FlightCheck(ctx context.Context) (domain.HealthReport, error) {
	return o.doctor.Run(ctx, o.scripts[domain.CmdFlightCheck])
}

func (o *Orchestrator) bind(cfg domain.Config) error {
	scripts := BindScripts(o.table, cfg.Scripts.Dir, o.opts.Platform)
	for _, name := range CommandNames() {
		if o.table[name].NeedsScript() && scripts[name] == "" {
			return fmt.Errorf("%s: %w", name, domain.ErrMissingScriptBinding)
		}
	}
	o.scripts = scripts
	return nil
}

func (o *Orchestrator) reinitialize(ctx context.Context) error {
	o.closeChannel()
	if err := o.session.Dispose(ctx); err != nil {
		o.opts.Logger.Warn("failed to dispose session", map[string]interface{}{"error": err.Error()})
	}
	if !o.flightPassed && !o.cfg.Advanced.DisableStartupChecks {
		if _, err := o.FlightCheck(ctx); err != nil {
			var missing *domain.FlightCheckError
			if errors.As(err, &missing) {
				o.report(domain.MessageError, "Failed to activate plugin! "+err.Error())
			} else {
				o.report(domain.MessageError, "Failed to run checks before starting. Maybe this is helpful: "+err.Error())
			}
			return err
		}
		o.flightPassed = true
	}
	return o.createSession(ctx)
}

func (o *Orchestrator) createSession(ctx context.Context) error {
	o.closeChannel()
	settings := o.cfg.Session()
	settings.WorkDir = o.workDir()
	paths, err := o.session.Create(ctx, settings)
	if err != nil {
		return err
	}
	o.channel = completion.NewChannel(paths.Sentinel, o.opts.Watcher, o.opts.Logger)
	events, err := o.channel.Arm(o.session.Terminal().Generation)
	if err != nil {
		return err
	}
	go func() {
		for ev := range events {
			o.opts.Dispatcher.Post(func() { o.handleCompletion(context.Background(), ev) })
		}
	}()
	return nil
}

// ensureSession makes sure a live session terminal with no command running in
// it exists. A request still in flight is superseded: its terminal is disposed
// and a new generation is created.
func (o *Orchestrator) ensureSession(ctx context.Context) error {
	if o.inflight != nil {
		o.opts.Logger.Info("Superseding the running command", map[string]interface{}{"command": o.inflight.name})
		o.finish(domain.CompletionEvent{
			Generation: o.session.Terminal().Generation,
			Verdict:    domain.VerdictUnresolved,
			Err:        domain.ErrSuperseded,
		}, 0)
		return o.createSession(ctx)
	}
	if o.session.Live(ctx) {
		return nil
	}
	o.opts.Logger.Info("Session terminal is gone, creating a new one", nil)
	return o.createSession(ctx)
}

func (o *Orchestrator) closeChannel() {
	if o.channel != nil {
		o.channel.Close()
		o.channel = nil
	}
}

func (o *Orchestrator) handleCompletion(ctx context.Context, ev domain.CompletionEvent) {
	state := o.session.State()
	if ev.Generation != o.session.Terminal().Generation || state == domain.SessionAbsent || state == domain.SessionDisposed {
		o.opts.Logger.Debug("Dropping stale completion", map[string]interface{}{"generation": ev.Generation})
		return
	}

	switch ev.Verdict {
	case domain.VerdictTampered:
		o.report(domain.MessageError, "Canary file was renamed or removed! Please reload.")
		o.closeChannel()
		if err := o.session.Dispose(ctx); err != nil {
			o.opts.Logger.Warn("failed to dispose session", map[string]interface{}{"error": err.Error()})
		}
		o.finish(ev, 0)
		return
	case domain.VerdictUnresolved:
		o.report(domain.MessageWarning, fmt.Sprintf("An error occurred while reading the canary file: %v", ev.Err))
		o.opts.Logger.Warn("Something went wrong but we don't know what... Did you clean out your temp folder?", nil)
		o.finish(ev, 0)
		return
	case domain.VerdictSuccess, domain.VerdictFailure:
	}

	vis := o.cfg.Visibility()
	if vis.ClearAfterUse {
		if err := o.session.Clear(ctx); err != nil {
			o.opts.Logger.Debug("clear skipped", map[string]interface{}{"error": err.Error()})
		}
	}
	if vis.KillAfterUse {
		o.session.DisposeDeferred(ctx)
	}

	opened := 0
	if ev.Verdict == domain.VerdictSuccess {
		opened = o.navigator.Navigate(ctx, ev.Payload, o.cfg.General.OpenFileInPreviewEditor)
	}

	if vis.RestoreFocus && o.focus.OnCompletion(ctx, ev.Verdict, vis) {
		o.finish(ev, opened)
		return
	}
	if vis.ShouldHide(ev.Verdict) {
		if err := o.session.Hide(ctx); err != nil && !errors.Is(err, domain.ErrSessionAbsent) {
			o.opts.Logger.Warn("failed to hide terminal", map[string]interface{}{"error": err.Error()})
		}
	}
	o.finish(ev, opened)
}

func (o *Orchestrator) finish(ev domain.CompletionEvent, opened int) {
	inv := o.inflight
	o.inflight = nil

	outcome := Outcome{Verdict: ev.Verdict, Opened: opened, Err: ev.Err}
	if inv != nil {
		outcome.Command = inv.name
		o.record(inv, ev.Verdict, opened)
	}
	if o.opts.OnOutcome != nil {
		o.opts.OnOutcome(outcome)
	}
}

func (o *Orchestrator) record(inv *invocation, verdict domain.Verdict, opened int) {
	if o.opts.History == nil {
		return
	}
	now := o.opts.Clock.Now()
	err := o.opts.History.Save(domain.HistoryRecord{
		ID:          inv.id,
		Timestamp:   now,
		Command:     inv.name,
		CommandLine: inv.line,
		Resumable:   inv.resumable,
		Verdict:     verdict.String(),
		ResultCount: opened,
		SearchRoots: append([]string(nil), o.roots.Paths...),
		TypeFilter:  inv.typeFilter,
		DurationMS:  now.Sub(inv.started).Milliseconds(),
	})
	if err != nil {
		o.opts.Logger.Warn("failed to save history", map[string]interface{}{"error": err.Error()})
	}
}

func (o *Orchestrator) lastResumable() (domain.CommandName, bool) {
	if o.lastCommand != "" {
		return o.lastCommand, true
	}
	if o.opts.History == nil {
		return "", false
	}
	rec, ok, err := o.opts.History.LastResumable()
	if err != nil {
		o.opts.Logger.Warn("failed to read history", map[string]interface{}{"error": err.Error()})
		return "", false
	}
	if !ok {
		return "", false
	}
	if d, known := o.table[rec.Command]; !known || !d.Resumable {
		return "", false
	}
	return rec.Command, true
}

func (o *Orchestrator) runCustomTask(ctx context.Context) (Dispatch, error) {
	if len(o.cfg.CustomTasks) == 0 {
		o.report(domain.MessageWarning, "No custom tasks defined. Add some in the settings.")
		return Dispatch{}, domain.ErrNoCustomTasks
	}
	task, ok, err := o.opts.Chooser.ChooseTask(ctx, o.cfg.CustomTasks)
	if err != nil {
		return Dispatch{}, o.fail(err)
	}
	if !ok {
		return Dispatch{}, nil
	}
	if err := o.ensureSession(ctx); err != nil {
		return Dispatch{}, o.fail(err)
	}
	o.opts.Logger.Info("Executing custom task", map[string]interface{}{"name": task.Name, "command": task.Command})
	if err := o.session.SendCommand(ctx, task.Command); err != nil {
		return Dispatch{}, o.fail(err)
	}
	if err := o.session.Show(ctx); err != nil {
		o.opts.Logger.Warn("failed to show terminal", map[string]interface{}{"error": err.Error()})
	}
	return Dispatch{CommandLine: task.Command}, nil
}

func (o *Orchestrator) chooseTypes(ctx context.Context) (bool, error) {
	options, err := TypeOptions(ctx, o.opts.Executor, o.opts.Cache, o.opts.Logger, o.opts.Clock.Now())
	if err != nil {
		return false, err
	}
	tokens, ok, err := o.opts.Chooser.ChooseTypes(ctx, options, append([]string(nil), o.typeFilter...))
	if err != nil || !ok {
		return false, err
	}
	o.typeFilter = ApplyTypeSelection(tokens)
	o.opts.Logger.Info("Using type filter", map[string]interface{}{"types": o.typeFilter})
	return true, nil
}

func (o *Orchestrator) writeExplain() error {
	path := o.session.Paths().Explain
	report := locations.Explain(o.roots, !o.opts.Platform.IsWindows())
	if err := os.WriteFile(path, []byte(report), domain.SecureFilePermissions); err != nil {
		return fmt.Errorf("write search locations explanation: %w", err)
	}
	return nil
}

// workDir starts the terminal in the first workspace root, where relative
// paths from git status resolve, falling back to the working directory.
func (o *Orchestrator) workDir() string {
	for _, root := range o.roots.Roots() {
		if root.Origin.Has(domain.OriginWorkspace) {
			return root.Path
		}
	}
	return o.env.CWD
}

func (o *Orchestrator) resolveRoots() {
	roots, errs := locations.Resolve(o.cfg.Locations(), o.env)
	for _, err := range errs {
		o.report(domain.MessageError, err.Error())
	}
	o.roots = roots
}

func (o *Orchestrator) fail(err error) error {
	o.report(domain.MessageError, err.Error())
	return err
}

func (o *Orchestrator) report(level domain.MessageLevel, text string) {
	switch level {
	case domain.MessageError:
		o.opts.Logger.Error(text, nil, nil)
	case domain.MessageWarning:
		o.opts.Logger.Warn(text, nil)
	default:
		o.opts.Logger.Info(text, nil)
	}
	o.opts.Notifier.Notify(level, text)
}
