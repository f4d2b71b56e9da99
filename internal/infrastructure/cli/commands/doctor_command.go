package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/doeshing/fif-go/internal/application/doctor"
	"github.com/doeshing/fif-go/internal/application/orchestrator"
	"github.com/doeshing/fif-go/internal/domain"
)

var (
	statusStyles = map[domain.HealthStatus]lipgloss.Style{
		domain.HealthOK:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
		domain.HealthWarn:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3")),
		domain.HealthError: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
	}
	checkNameStyle = lipgloss.NewStyle().Bold(true)
	detailsStyle   = lipgloss.NewStyle().Faint(true)
)

// NewDoctorCommand creates the doctor command
func NewDoctorCommand(open ContainerFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run the flight check and probe the terminal backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctorDiagnostics(cmd, cmd.OutOrStdout(), open)
		},
	}
}

// runDoctorDiagnostics runs environment diagnostics
func runDoctorDiagnostics(cmd *cobra.Command, out io.Writer, open ContainerFunc) error {
	container, err := open(cmd)
	if err != nil {
		return err
	}
	defer container.Close()

	scripts := orchestrator.BindScripts(orchestrator.CommandTable(), container.Config.Scripts.Dir, container.Platform)
	service := &doctor.Service{
		Executor: container.Executor,
		Host:     container.Host,
		Logger:   container.Logger,
		Platform: container.Platform,
	}
	report, err := service.Run(cmd.Context(), scripts[domain.CmdFlightCheck])

	// Display report even if there were errors
	displayDoctorReport(out, report)

	if err != nil {
		return fmt.Errorf("diagnostics completed with errors: %w", err)
	}
	if report.HasErrors() {
		return errors.New("diagnostics completed with errors")
	}
	return nil
}

// displayDoctorReport displays the health check report
func displayDoctorReport(out io.Writer, report domain.HealthReport) {
	for _, check := range report.Checks {
		status := statusStyles[check.Status].Render("[" + strings.ToUpper(string(check.Status)) + "]")
		fmt.Fprintf(out, "%s %s - %s\n",
			status,
			checkNameStyle.Render(check.Name),
			detailsStyle.Render(check.Details))
	}
}
