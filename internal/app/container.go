package app

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"

	appconfig "github.com/doeshing/fif-go/internal/application/config"
	"github.com/doeshing/fif-go/internal/application/locations"
	"github.com/doeshing/fif-go/internal/application/orchestrator"
	"github.com/doeshing/fif-go/internal/domain"
	"github.com/doeshing/fif-go/internal/infrastructure/cache"
	"github.com/doeshing/fif-go/internal/infrastructure/config"
	"github.com/doeshing/fif-go/internal/infrastructure/executor"
	"github.com/doeshing/fif-go/internal/infrastructure/history"
	"github.com/doeshing/fif-go/internal/infrastructure/terminal"
	"github.com/doeshing/fif-go/internal/infrastructure/watcher"
	"github.com/doeshing/fif-go/internal/pkg/clock"
	"github.com/doeshing/fif-go/internal/pkg/filesystem"
	"github.com/doeshing/fif-go/internal/pkg/logger"
	"github.com/doeshing/fif-go/internal/ports"
)

// LogFileName is the log written under <data dir>/logs when logging to a file.
const LogFileName = "fif.log"

// Options controls how the container is built.
type Options struct {
	// ConfigPath overrides FIF_CONFIG and ~/.fif/config.yaml.
	ConfigPath string
	// LogToFile sends log records to <data dir>/logs/fif.log unless the
	// config names a file. Used by `fif serve`, whose stdout is the protocol.
	LogToFile bool
	// LogOutput receives records when no file is used. Defaults to stderr.
	LogOutput io.Writer
}

// Container wires up application services with infrastructure adapters.
type Container struct {
	Config       domain.Config
	ConfigLoader *config.FileLoader
	Logger       ports.Logger
	Executor     ports.CommandExecutor
	Host         ports.TerminalHost
	Watcher      ports.Watcher
	Clock        ports.Clock
	History      *history.SQLiteStore
	Cache        *cache.FileCache
	Platform     domain.Platform
	// DataDir holds history, cache and logs; it is the config file's directory.
	DataDir string

	closers []io.Closer
}

// Frontend is the part of the orchestrator's collaborators that depends on
// how fif was started: the serve protocol or the one-shot CLI.
type Frontend struct {
	Dispatcher ports.Dispatcher
	Editor     ports.Editor
	Notifier   ports.Notifier
	Chooser    ports.Chooser
	OnOutcome  func(orchestrator.Outcome)
}

// BuildContainer constructs the dependency graph.
func BuildContainer(ctx context.Context, opts Options) (*Container, error) {
	cfgLoader := config.NewFileLoader(opts.ConfigPath)
	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := appconfig.Validate(cfg); err != nil {
		return nil, err
	}

	dataDir := filepath.Dir(cfgLoader.Path())
	logPath := filesystem.ExpandPath(cfg.Log.File)
	if logPath == "" && opts.LogToFile {
		logPath = filepath.Join(dataDir, "logs", LogFileName)
	}
	log, logCloser, err := logger.Open(cfg.Log.Level, logPath, opts.LogOutput)
	if err != nil {
		return nil, err
	}

	exec := executor.NewLocalExecutor("", nil)
	clk := clock.Real{}
	historyStore := history.NewSQLiteStore(filepath.Join(dataDir, "history"), log)
	cacheStore := cache.NewFileCache(filepath.Join(dataDir, "cache"), domain.DefaultToolCacheDuration, clk)

	log.Debug("container built", map[string]interface{}{
		"config":  cfgLoader.Path(),
		"history": historyStore.Path(),
		"backend": cfg.Terminal.Backend,
	})

	return &Container{
		Config:       cfg,
		ConfigLoader: cfgLoader,
		Logger:       log,
		Executor:     exec,
		Host:         terminal.NewTmuxHost(exec, log),
		Watcher:      watcher.New(domain.SentinelSettleDelay, log),
		Clock:        clk,
		History:      historyStore,
		Cache:        cacheStore,
		Platform:     domain.PlatformFor(runtime.GOOS),
		DataDir:      dataDir,
		closers:      []io.Closer{historyStore, logCloser},
	}, nil
}

// NewOrchestrator builds an orchestrator bound to this container's adapters.
func (c *Container) NewOrchestrator(f Frontend) *orchestrator.Orchestrator {
	return orchestrator.New(orchestrator.Options{
		Host:       c.Host,
		Watcher:    c.Watcher,
		Clock:      c.Clock,
		Dispatcher: f.Dispatcher,
		Editor:     f.Editor,
		Notifier:   f.Notifier,
		Chooser:    f.Chooser,
		Executor:   c.Executor,
		Cache:      c.Cache,
		History:    c.History,
		Selection:  filesystem.SelectionWriter{},
		Logger:     c.Logger,
		Platform:   c.Platform,
		OnOutcome:  f.OnOutcome,
	})
}

// Environment describes the process for the location resolver. Folders are
// workspace folder URIs; nil means no workspace is open.
func (c *Container) Environment(folders []string) locations.Environment {
	cwd, err := os.Getwd()
	if err != nil {
		c.Logger.Warn("failed to read working directory", map[string]interface{}{"error": err.Error()})
	}
	return locations.Environment{CWD: cwd, Folders: WorkspaceFolders(folders), Platform: c.Platform}
}

// Close releases the history database and the log file.
func (c *Container) Close() error {
	var first error
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// WorkspaceFolders converts folder URIs, keeping nil distinct from empty.
func WorkspaceFolders(uris []string) []domain.WorkspaceFolder {
	if uris == nil {
		return nil
	}
	folders := make([]domain.WorkspaceFolder, 0, len(uris))
	for _, uri := range uris {
		folders = append(folders, domain.WorkspaceFolder{URI: uri})
	}
	return folders
}
