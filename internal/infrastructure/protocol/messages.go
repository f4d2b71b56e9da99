// Package protocol implements the JSON-lines conversation between `fif serve`
// and an editor plugin. Each line on stdin is one Inbound message; each line
// written to stdout is one Outbound message.
package protocol

// Inbound message types.
const (
	TypeCommand                 = "command"
	TypeSettingsChanged         = "settings_changed"
	TypeWorkspaceFoldersChanged = "workspace_folders_changed"
	TypeActiveTerminalChanged   = "active_terminal_changed"
	TypeChoice                  = "choice"
	TypeShutdown                = "shutdown"
)

// Outbound message types.
const (
	TypeOpen    = "open"
	TypeMessage = "message"
	TypeChoose  = "choose"
	TypeResult  = "result"
)

// Choice kinds carried by choose requests.
const (
	ChooseTypes = "types"
	ChooseTask  = "task"
)

// Inbound is a message from the editor plugin.
type Inbound struct {
	Type      string                 `json:"type"`
	Name      string                 `json:"name,omitempty"`
	Selection string                 `json:"selection,omitempty"`
	Settings  map[string]interface{} `json:"settings,omitempty"`
	// Folders is null when no workspace is open.
	Folders  []string `json:"folders"`
	Terminal string   `json:"terminal,omitempty"`
	// ID and Values answer a choose request.
	ID        string   `json:"id,omitempty"`
	Values    []string `json:"values,omitempty"`
	Dismissed bool     `json:"dismissed,omitempty"`
}

// Outbound is a message to the editor plugin.
type Outbound struct {
	Type string `json:"type"`

	Path    string `json:"path,omitempty"`
	Line    *int   `json:"line,omitempty"`
	Column  *int   `json:"column,omitempty"`
	Preview bool   `json:"preview,omitempty"`

	Level string `json:"level,omitempty"`
	Text  string `json:"text,omitempty"`

	ID      string   `json:"id,omitempty"`
	Kind    string   `json:"kind,omitempty"`
	Options []Option `json:"options,omitempty"`
	Current []string `json:"current,omitempty"`

	Command string `json:"command,omitempty"`
	Verdict string `json:"verdict,omitempty"`
	Opened  int    `json:"opened,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Option is one entry of a choose request.
type Option struct {
	Value       string `json:"value"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}
