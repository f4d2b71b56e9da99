package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/doeshing/fif-go/internal/domain"
	"github.com/doeshing/fif-go/internal/infrastructure/cli/helpers"
	configinfra "github.com/doeshing/fif-go/internal/infrastructure/config"
)

// newConfigTaskCommand manages the customTasks list in config.yaml.
func newConfigTaskCommand(loader func(cmd *cobra.Command) *configinfra.FileLoader) *cobra.Command {
	taskCmd := &cobra.Command{
		Use:   "task",
		Short: "Manage custom tasks",
	}
	taskCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List custom tasks",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loader(cmd).Load(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to load configuration: %w", err)
				}
				listCustomTasks(cmd.OutOrStdout(), cfg.CustomTasks)
				return nil
			},
		},
		newConfigTaskAddCommand(loader),
		&cobra.Command{
			Use:   "remove <name>",
			Short: "Remove a custom task",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return updateCustomTasks(cmd, loader(cmd), func(cfg *domain.Config) error {
					return cfg.RemoveCustomTask(args[0])
				}, fmt.Sprintf("Removed custom task %s.", args[0]))
			},
		},
	)
	return taskCmd
}

func newConfigTaskAddCommand(loader func(cmd *cobra.Command) *configinfra.FileLoader) *cobra.Command {
	var name, command string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a custom task",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" || command == "" {
				return errors.New(ErrTaskFieldsRequired)
			}
			task := domain.CustomTask{Name: name, Command: command}
			return updateCustomTasks(cmd, loader(cmd), func(cfg *domain.Config) error {
				return cfg.AddCustomTask(task)
			}, fmt.Sprintf("Added custom task %s.", name))
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Task name shown in the chooser")
	cmd.Flags().StringVar(&command, "command", "", "Command line sent to the terminal")
	return cmd
}

func updateCustomTasks(cmd *cobra.Command, loader *configinfra.FileLoader, edit func(*domain.Config) error, done string) error {
	cfg, err := loader.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := edit(&cfg); err != nil {
		return err
	}
	if err := helpers.SaveConfigWithValidation(loader, cfg); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), done)
	return nil
}

func listCustomTasks(out io.Writer, tasks []domain.CustomTask) {
	if len(tasks) == 0 {
		fmt.Fprintln(out, MsgNoCustomTasks)
		return
	}
	for _, task := range tasks {
		fmt.Fprintf(out, "%s\t%s\n", task.Name, task.Command)
	}
}
