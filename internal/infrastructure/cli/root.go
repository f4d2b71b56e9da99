package cli

import (
	"github.com/spf13/cobra"

	"github.com/doeshing/fif-go/internal/app"
	"github.com/doeshing/fif-go/internal/infrastructure/cli/commands"
	"github.com/doeshing/fif-go/internal/infrastructure/config"
)

// Options holds CLI-level configuration.
type Options struct {
	// ConfigPath is the default of the --config flag.
	ConfigPath string
}

type rootState struct {
	configPath string
}

// opener builds a container per invocation, so every command sees the
// config file as it is now.
func (s *rootState) opener(logToFile bool) commands.ContainerFunc {
	return func(cmd *cobra.Command) (*app.Container, error) {
		return app.BuildContainer(cmd.Context(), app.Options{
			ConfigPath: s.configPath,
			LogToFile:  logToFile,
			LogOutput:  cmd.ErrOrStderr(),
		})
	}
}

func (s *rootState) loader(*cobra.Command) *config.FileLoader {
	return config.NewFileLoader(s.configPath)
}

// NewRootCmd wires the cobra root command.
func NewRootCmd(opts Options) *cobra.Command {
	state := &rootState{configPath: opts.ConfigPath}

	root := &cobra.Command{
		Use:   "fif",
		Short: "fif - find it faster",
		Long: "fif drives fzf, ripgrep and bat in a tmux window and opens what you pick.\n" +
			"Use `fif run <command>` from a shell or let an editor plugin talk to `fif serve`.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&state.configPath, "config", opts.ConfigPath, "Config file (default $FIF_CONFIG or ~/.fif/config.yaml)")

	open := state.opener(false)
	root.AddCommand(newRunCommand(state))
	root.AddCommand(newServeCommand(state))
	root.AddCommand(commands.NewDoctorCommand(open))
	root.AddCommand(commands.NewLocationsCommand(open))
	root.AddCommand(commands.NewHistoryCommand(open))
	root.AddCommand(commands.NewCacheCommand(open))
	root.AddCommand(commands.NewConfigCommand(open, state.loader))
	root.AddCommand(commands.NewVersionCommand())
	return root
}
