package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/fif-go/assets"
	"github.com/doeshing/fif-go/internal/domain"
	"github.com/doeshing/fif-go/internal/pkg/filesystem"
	"github.com/doeshing/fif-go/internal/ports"
)

// FileLoader loads YAML configuration from ~/.fif/config.yaml (overridable via FIF_CONFIG).
type FileLoader struct {
	overridePath string
}

// NewFileLoader builds a new loader.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{overridePath: path}
}

// Load implements ports.ConfigProvider.
func (l *FileLoader) Load(context.Context) (domain.Config, error) {
	path := l.Path()
	if err := ensureConfigDir(path); err != nil {
		return domain.Config{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return domain.Config{}, err
		}
		if err := os.WriteFile(path, assets.DefaultConfigYAML, domain.SecureFilePermissions); err != nil {
			return domain.Config{}, fmt.Errorf("write default config: %w", err)
		}
		data = assets.DefaultConfigYAML
	}

	cfg, err := Parse(data)
	if err != nil {
		return domain.Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Path returns the config file location.
func (l *FileLoader) Path() string {
	if l.overridePath != "" {
		return filesystem.ExpandPath(l.overridePath)
	}
	if custom := os.Getenv("FIF_CONFIG"); custom != "" {
		return filesystem.ExpandPath(custom)
	}
	return filepath.Join(filesystem.UserHomeDir(), ".fif", "config.yaml")
}

// Save writes cfg back to the config file.
func (l *FileLoader) Save(cfg domain.Config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	path := l.Path()
	if err := ensureConfigDir(path); err != nil {
		return err
	}
	return os.WriteFile(path, raw, domain.SecureFilePermissions)
}

// Backup copies the current config file next to itself with a timestamp suffix.
func (l *FileLoader) Backup() (string, error) {
	path := l.Path()
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	backup := fmt.Sprintf("%s.%s.bak", path, time.Now().Format("20060102-150405"))
	if err := os.WriteFile(backup, data, domain.SecureFilePermissions); err != nil {
		return "", err
	}
	return backup, nil
}

// Parse decodes YAML over the embedded defaults, so keys missing from data
// keep their default values.
func Parse(data []byte) (domain.Config, error) {
	cfg, err := Defaults()
	if err != nil {
		return domain.Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.Config{}, err
	}
	return hydrateDefaults(cfg), nil
}

// Defaults returns the embedded default configuration.
func Defaults() (domain.Config, error) {
	var cfg domain.Config
	if err := yaml.Unmarshal(assets.DefaultConfigYAML, &cfg); err != nil {
		return domain.Config{}, fmt.Errorf("embedded defaults: %w", err)
	}
	return cfg, nil
}

func ensureConfigDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions)
}

func hydrateDefaults(cfg domain.Config) domain.Config {
	if cfg.ConfigFormatVersion == "" {
		cfg.ConfigFormatVersion = "1"
	}
	if cfg.General.SearchCurrentWorkingDirectory == "" {
		cfg.General.SearchCurrentWorkingDirectory = domain.PolicyNoWorkspaceOnly
	}
	if cfg.General.AdditionalSearchLocationsWhen == "" {
		cfg.General.AdditionalSearchLocationsWhen = domain.PolicyAlways
	}
	if cfg.Terminal.Backend == "" {
		cfg.Terminal.Backend = domain.DefaultTerminalBackend
	}
	if cfg.Terminal.Name == "" {
		cfg.Terminal.Name = domain.DefaultTerminalName
	}
	if cfg.Scripts.Dir == "" {
		cfg.Scripts.Dir = filepath.Join(filesystem.UserHomeDir(), ".fif", "scripts")
	}
	cfg.Scripts.Dir = filesystem.ExpandPath(cfg.Scripts.Dir)
	for i, loc := range cfg.General.AdditionalSearchLocations {
		cfg.General.AdditionalSearchLocations[i] = filesystem.ExpandPath(loc)
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	return cfg
}

var _ ports.ConfigProvider = (*FileLoader)(nil)
