package commands

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/doeshing/fif-go/internal/domain"
	"github.com/doeshing/fif-go/internal/infrastructure/cli/helpers"
	"github.com/doeshing/fif-go/internal/ports"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

// NewHistoryCommand creates the history command with all subcommands
func NewHistoryCommand(open ContainerFunc) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect fif invocation history",
	}

	historyCmd.AddCommand(
		newHistoryListCommand(open),
		newHistoryClearCommand(open),
		newHistoryStatsCommand(open),
		newHistoryRetainCommand(open),
	)

	return historyCmd
}

func newHistoryListCommand(open ContainerFunc) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent invocations",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := open(cmd)
			if err != nil {
				return err
			}
			defer container.Close()
			return listHistoryEntries(cmd.OutOrStdout(), container.History, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", domain.DefaultHistoryLimit, "Max entries to show")
	return cmd
}

func newHistoryClearCommand(open ContainerFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all history",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := open(cmd)
			if err != nil {
				return err
			}
			defer container.Close()
			if err := container.History.Clear(); err != nil {
				return fmt.Errorf("failed to clear history: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), MsgHistoryCleared)
			return nil
		},
	}
}

func newHistoryStatsCommand(open ContainerFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show success rate and top commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := open(cmd)
			if err != nil {
				return err
			}
			defer container.Close()
			return showHistoryStats(cmd.OutOrStdout(), container.History)
		},
	}
}

func newHistoryRetainCommand(open ContainerFunc) *cobra.Command {
	var retainDays int

	cmd := &cobra.Command{
		Use:   "retain",
		Short: "Prune history older than N days",
		RunE: func(cmd *cobra.Command, args []string) error {
			if retainDays <= 0 {
				return errors.New(ErrInvalidRetainDays)
			}
			container, err := open(cmd)
			if err != nil {
				return err
			}
			defer container.Close()

			removed, err := container.History.Prune(container.Clock.Now(), time.Duration(retainDays)*24*time.Hour)
			if err != nil {
				return fmt.Errorf("failed to prune old history: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries older than %d days.\n", removed, retainDays)
			return nil
		},
	}

	cmd.Flags().IntVar(&retainDays, "days", domain.DefaultHistoryRetainDays, "Days to retain history")
	return cmd
}

func listHistoryEntries(out io.Writer, store ports.HistoryRepository, limit int) error {
	records, err := store.Records(limit)
	if err != nil {
		return fmt.Errorf("failed to retrieve history records: %w", err)
	}
	if len(records) == 0 {
		fmt.Fprintln(out, MsgNoHistoryRecorded)
		return nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers("TIME", "COMMAND", "VERDICT", "RESULTS", "DURATION")
	for _, rec := range records {
		t.Row(
			rec.Timestamp.Local().Format(domain.TimestampFormat),
			string(rec.Command),
			rec.Verdict,
			strconv.Itoa(rec.ResultCount),
			(time.Duration(rec.DurationMS) * time.Millisecond).String(),
		)
	}
	fmt.Fprintln(out, t.Render())
	return nil
}

// historyStatistics holds analyzed history statistics
type historyStatistics struct {
	completed   int
	successful  int
	opened      int
	commandFreq map[string]int
	verdicts    map[string]int
}

func analyzeHistoryRecords(records []domain.HistoryRecord) historyStatistics {
	stats := historyStatistics{
		commandFreq: make(map[string]int),
		verdicts:    make(map[string]int),
	}

	for _, rec := range records {
		switch rec.Verdict {
		case domain.VerdictSuccess.String():
			stats.completed++
			stats.successful++
		case domain.VerdictFailure.String():
			stats.completed++
		}
		stats.opened += rec.ResultCount
		stats.commandFreq[string(rec.Command)]++
		stats.verdicts[rec.Verdict]++
	}

	return stats
}

func showHistoryStats(out io.Writer, store ports.HistoryRepository) error {
	records, err := store.Records(MaxHistoryAnalysisRecords)
	if err != nil {
		return fmt.Errorf("failed to retrieve history for analysis: %w", err)
	}
	if len(records) == 0 {
		fmt.Fprintln(out, MsgNoHistoryRecorded)
		return nil
	}

	stats := analyzeHistoryRecords(records)
	fmt.Fprintf(out, "Entries analyzed: %d\nCompleted: %d\nSuccess rate: %.1f%%\nFiles opened: %d\n",
		len(records),
		stats.completed,
		helpers.CalculateSuccessRate(stats.successful, stats.completed),
		stats.opened)

	fmt.Fprintln(out, "Top commands:")
	for _, stat := range helpers.CalculateTopCommands(stats.commandFreq, 5) {
		fmt.Fprintf(out, "  %s (%d)\n", stat.Command, stat.Count)
	}

	fmt.Fprintln(out, "Verdicts:")
	for _, stat := range helpers.CalculateTopCommands(stats.verdicts, 0) {
		fmt.Fprintf(out, "  %s: %d\n", stat.Command, stat.Count)
	}
	return nil
}
