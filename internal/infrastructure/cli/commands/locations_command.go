package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/doeshing/fif-go/internal/application/locations"
)

// NewLocationsCommand prints the search roots a command would receive.
func NewLocationsCommand(open ContainerFunc) *cobra.Command {
	var folders []string

	cmd := &cobra.Command{
		Use:   "locations",
		Short: "Explain which directories are searched and why",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := open(cmd)
			if err != nil {
				return err
			}
			defer container.Close()

			var uris []string
			if cmd.Flags().Changed("folder") {
				uris = folders
			}
			roots, errs := locations.Resolve(container.Config.Locations(), container.Environment(uris))
			for _, err := range errs {
				container.Logger.Warn("skipping workspace folder", map[string]interface{}{"error": err.Error()})
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), locations.Explain(roots, false))
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&folders, "folder", nil, "Workspace folder URI (file:///path); repeat for several. Without it no workspace is open")
	return cmd
}
