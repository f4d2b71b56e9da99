package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/doeshing/fif-go/internal/app"
	appconfig "github.com/doeshing/fif-go/internal/application/config"
	"github.com/doeshing/fif-go/internal/application/locations"
	"github.com/doeshing/fif-go/internal/application/orchestrator"
	"github.com/doeshing/fif-go/internal/domain"
	"github.com/doeshing/fif-go/internal/infrastructure/config"
	"github.com/doeshing/fif-go/internal/infrastructure/protocol"
	"github.com/doeshing/fif-go/internal/ports"
)

func newServeCommand(state *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve an editor plugin over JSON lines on stdin/stdout",
		Long: "Reads one JSON message per line on stdin and writes one per line on stdout.\n" +
			"Logs go to ~/.fif/logs/fif.log unless log.file is set.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd, state)
		},
	}
}

func serve(cmd *cobra.Command, state *rootState) error {
	container, err := state.opener(true)(cmd)
	if err != nil {
		return err
	}
	defer container.Close()

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

	peer := protocol.NewPeer(cmd.OutOrStdout(), container.Logger)
	handler := newServeHandler(container.Config, container.Environment(nil), peer, container.Logger)
	handler.orch = container.NewOrchestrator(app.Frontend{
		Dispatcher: loop,
		Editor:     peer,
		Notifier:   peer,
		Chooser:    peer,
		OnOutcome:  handler.sendResult,
	})
	handler.orch.ForwardFocusChanges(loopCtx)

	ctx := cmd.Context()
	loop.Post(func() { handler.activate(ctx, handler.cfg) })

	container.Logger.Info("serving", map[string]interface{}{"config": container.ConfigLoader.Path()})
	serveErr := protocol.NewServer(peer, handler, loop, container.Logger).Serve(ctx, cmd.InOrStdin())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := loop.Call(shutdownCtx, func() error { return handler.orch.Deactivate(shutdownCtx) }); err != nil {
		container.Logger.Warn("failed to deactivate", map[string]interface{}{"error": err.Error()})
	}
	if errors.Is(serveErr, context.Canceled) {
		return nil
	}
	return serveErr
}

// serveHandler applies protocol messages to the orchestrator. Every method
// runs on the loop goroutine.
type serveHandler struct {
	orch   *orchestrator.Orchestrator
	peer   *protocol.Peer
	logger ports.Logger

	// base is the config file snapshot settings are applied over.
	base domain.Config
	cfg  domain.Config
	env  locations.Environment
	// active is false until an activation succeeds; settings changes retry it.
	active bool
}

func newServeHandler(base domain.Config, env locations.Environment, peer *protocol.Peer, logger ports.Logger) *serveHandler {
	return &serveHandler{base: base, cfg: base, env: env, peer: peer, logger: logger}
}

func (h *serveHandler) activate(ctx context.Context, cfg domain.Config) {
	h.cfg = cfg
	err := h.orch.Activate(ctx, cfg, h.env)
	if err != nil {
		h.logger.Warn("activation incomplete", map[string]interface{}{"error": err.Error()})
	}
	h.active = err == nil
}

func (h *serveHandler) Command(ctx context.Context, name, selection string) {
	_, err := h.orch.Execute(ctx, orchestrator.Invocation{Name: domain.CommandName(name), Selection: selection})
	if err != nil {
		h.send(protocol.Outbound{Type: protocol.TypeResult, Command: name, Error: err.Error()})
	}
}

func (h *serveHandler) SettingsChanged(ctx context.Context, settings map[string]interface{}) {
	cfg, err := config.ApplySettings(h.base, settings)
	if err == nil {
		err = appconfig.Validate(cfg)
	}
	if err != nil {
		h.logger.Error("rejected settings", err, nil)
		h.peer.Notify(domain.MessageError, "fif: invalid settings: "+err.Error())
		return
	}
	if !h.active {
		h.activate(ctx, cfg)
		return
	}
	h.cfg = cfg
	if err := h.orch.OnSettingsChanged(ctx, cfg); err != nil {
		h.logger.Warn("settings change incomplete", map[string]interface{}{"error": err.Error()})
	}
}

func (h *serveHandler) WorkspaceFoldersChanged(_ context.Context, folders []string) {
	h.env.Folders = app.WorkspaceFolders(folders)
	if h.active {
		h.orch.OnWorkspaceFoldersChanged(h.env.Folders)
	}
}

func (h *serveHandler) ActiveTerminalChanged(ctx context.Context, terminal string) {
	h.orch.OnActiveTerminalChanged(ctx, domain.TerminalRef{ID: terminal})
}

func (h *serveHandler) sendResult(o orchestrator.Outcome) {
	msg := protocol.Outbound{
		Type:    protocol.TypeResult,
		Command: string(o.Command),
		Verdict: o.Verdict.String(),
		Opened:  o.Opened,
	}
	if o.Err != nil {
		msg.Error = o.Err.Error()
	}
	h.send(msg)
}

func (h *serveHandler) send(msg protocol.Outbound) {
	if err := h.peer.Send(msg); err != nil {
		h.logger.Warn("failed to send result", map[string]interface{}{"error": err.Error()})
	}
}

var _ protocol.Handler = (*serveHandler)(nil)
