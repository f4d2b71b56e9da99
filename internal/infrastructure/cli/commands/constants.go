package commands

import (
	"github.com/spf13/cobra"

	"github.com/doeshing/fif-go/internal/app"
)

// ContainerFunc builds the container for one command invocation. The caller
// closes it.
type ContainerFunc func(cmd *cobra.Command) (*app.Container, error)

// Error messages
const (
	ErrKeyRequired        = "--key is required"
	ErrInvalidRetainDays  = "--days must be > 0"
	ErrTaskFieldsRequired = "--name and --command are required"
)

// Success messages
const (
	MsgConfigurationValid       = "Configuration valid"
	MsgNoDifferencesFromDefault = "No differences from default configuration."
	MsgNoHistoryRecorded        = "No history recorded yet."
	MsgCacheCleared             = "Cache cleared."
	MsgHistoryCleared           = "History cleared."
	MsgNoCustomTasks            = "No custom tasks configured."
)

// MaxHistoryAnalysisRecords bounds `history stats`.
const MaxHistoryAnalysisRecords = 1000
