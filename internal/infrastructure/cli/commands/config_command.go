package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/doeshing/fif-go/assets"
	configapp "github.com/doeshing/fif-go/internal/application/config"
	"github.com/doeshing/fif-go/internal/domain"
	"github.com/doeshing/fif-go/internal/infrastructure/cli/helpers"
	configinfra "github.com/doeshing/fif-go/internal/infrastructure/config"
)

const (
	envKeyEditor  = "EDITOR"
	defaultEditor = "vi"
)

// NewConfigCommand creates the config command with all subcommands
func NewConfigCommand(open ContainerFunc, loader func(cmd *cobra.Command) *configinfra.FileLoader) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect fif configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfiguration(cmd, open)
		},
	}

	configCmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show full configuration",
			RunE: func(cmd *cobra.Command, args []string) error {
				return showConfiguration(cmd, open)
			},
		},
		newConfigGetCommand(open),
		&cobra.Command{
			Use:   "path",
			Short: "Print the configuration file path",
			RunE: func(cmd *cobra.Command, args []string) error {
				fmt.Fprintln(cmd.OutOrStdout(), loader(cmd).Path())
				return nil
			},
		},
		&cobra.Command{
			Use:   "edit",
			Short: "Edit configuration in $EDITOR",
			RunE: func(cmd *cobra.Command, args []string) error {
				return editConfigurationInEditor(loader(cmd).Path())
			},
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Validate configuration file",
			RunE: func(cmd *cobra.Command, args []string) error {
				return validateConfiguration(cmd, loader(cmd))
			},
		},
		&cobra.Command{
			Use:   "diff",
			Short: "Show diff versus default configuration",
			RunE: func(cmd *cobra.Command, args []string) error {
				container, err := open(cmd)
				if err != nil {
					return err
				}
				defer container.Close()
				return showConfigurationDiff(cmd.OutOrStdout(), container.Config)
			},
		},
		newConfigTaskCommand(loader),
	)

	return configCmd
}

func newConfigGetCommand(open ContainerFunc) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Get a specific configuration value",
		RunE: func(cmd *cobra.Command, args []string) error {
			if key == "" {
				return errors.New(ErrKeyRequired)
			}
			container, err := open(cmd)
			if err != nil {
				return err
			}
			defer container.Close()
			return getConfigurationValue(cmd.OutOrStdout(), container.Config, key)
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "Key path as in config.yaml (e.g., general.bat_theme)")
	return cmd
}

func showConfiguration(cmd *cobra.Command, open ContainerFunc) error {
	container, err := open(cmd)
	if err != nil {
		return err
	}
	defer container.Close()

	data, err := yaml.Marshal(container.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

func getConfigurationValue(out io.Writer, cfg domain.Config, keyPath string) error {
	cfgMap, err := helpers.ConfigToMap(cfg)
	if err != nil {
		return err
	}

	value, found := helpers.TraverseNestedMap(cfgMap, helpers.SplitKeyPath(keyPath))
	if !found {
		return fmt.Errorf("key %s not found in configuration", keyPath)
	}

	data, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	fmt.Fprint(out, string(data))
	return nil
}

// validateConfiguration parses the file without building adapters, so a
// broken file is reported rather than failing container construction.
func validateConfiguration(cmd *cobra.Command, loader *configinfra.FileLoader) error {
	cfg, err := loader.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if err := configapp.Validate(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), MsgConfigurationValid)
	return nil
}

func showConfigurationDiff(out io.Writer, current domain.Config) error {
	defaults, err := configinfra.Parse(assets.DefaultConfigYAML)
	if err != nil {
		return fmt.Errorf("failed to load default configuration: %w", err)
	}

	diff := cmp.Diff(defaults, current)
	if diff == "" {
		fmt.Fprintln(out, MsgNoDifferencesFromDefault)
		return nil
	}
	fmt.Fprintln(out, diff)
	return nil
}

func editConfigurationInEditor(path string) error {
	editorCommand := os.Getenv(envKeyEditor)
	if editorCommand == "" {
		editorCommand = defaultEditor
	}

	cmd := exec.Command(editorCommand, path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to run editor %s: %w", editorCommand, err)
	}
	return nil
}
