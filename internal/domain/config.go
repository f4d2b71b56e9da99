package domain

// Config mirrors ~/.fif/config.yaml.
//
// A Config value is a snapshot: it is rebuilt on every settings change and
// handed to components by value, never mutated in place.
type Config struct {
	ConfigFormatVersion string                  `yaml:"config_format_version" mapstructure:"-"`
	General             GeneralSettings         `yaml:"general" mapstructure:"general"`
	FindFiles           PreviewSettings         `yaml:"find_files" mapstructure:"findFiles"`
	FindWithinFiles     FindWithinFilesSettings `yaml:"find_within_files" mapstructure:"findWithinFiles"`
	FindTodoFixme       TodoFixmeSettings       `yaml:"find_todo_fixme" mapstructure:"findTodoFixme"`
	Advanced            AdvancedSettings        `yaml:"advanced" mapstructure:"advanced"`
	CustomTasks         []CustomTask            `yaml:"custom_tasks" mapstructure:"customTasks" validate:"dive"`
	Scripts             ScriptSettings          `yaml:"scripts" mapstructure:"scripts"`
	Terminal            TerminalSettings        `yaml:"terminal" mapstructure:"terminal"`
	Editor              EditorSettings          `yaml:"editor" mapstructure:"editor"`
	Log                 LogSettings             `yaml:"log" mapstructure:"log"`
}

// GeneralSettings captures the behaviour toggles shared by every command.
type GeneralSettings struct {
	UseWorkspaceSearchExcludes    bool         `yaml:"use_workspace_search_excludes" mapstructure:"useWorkspaceSearchExcludes"`
	UseGitIgnoreExcludes          bool         `yaml:"use_gitignore_excludes" mapstructure:"useGitIgnoreExcludes"`
	SearchExcludes                []string     `yaml:"search_excludes" mapstructure:"searchExcludes"`
	AdditionalSearchLocations     []string     `yaml:"additional_search_locations" mapstructure:"additionalSearchLocations"`
	AdditionalSearchLocationsWhen SearchPolicy `yaml:"additional_search_locations_when" mapstructure:"additionalSearchLocationsWhen" validate:"searchpolicy"`
	SearchCurrentWorkingDirectory SearchPolicy `yaml:"search_current_working_directory" mapstructure:"searchCurrentWorkingDirectory" validate:"searchpolicy"`
	SearchWorkspaceFolders        bool         `yaml:"search_workspace_folders" mapstructure:"searchWorkspaceFolders"`
	HideTerminalAfterSuccess      bool         `yaml:"hide_terminal_after_success" mapstructure:"hideTerminalAfterSuccess"`
	HideTerminalAfterFail         bool         `yaml:"hide_terminal_after_fail" mapstructure:"hideTerminalAfterFail"`
	ClearTerminalAfterUse         bool         `yaml:"clear_terminal_after_use" mapstructure:"clearTerminalAfterUse"`
	KillTerminalAfterUse          bool         `yaml:"kill_terminal_after_use" mapstructure:"killTerminalAfterUse"`
	ShowMaximizedTerminal         bool         `yaml:"show_maximized_terminal" mapstructure:"showMaximizedTerminal"`
	BatTheme                      string       `yaml:"bat_theme" mapstructure:"batTheme"`
	OpenFileInPreviewEditor       bool         `yaml:"open_file_in_preview_editor" mapstructure:"openFileInPreviewEditor"`
	RestoreFocusTerminal          bool         `yaml:"restore_focus_terminal" mapstructure:"restoreFocusTerminal"`
	UseTerminalInEditor           bool         `yaml:"use_terminal_in_editor" mapstructure:"useTerminalInEditor"`
	ShellPathForTerminal          string       `yaml:"shell_path_for_terminal" mapstructure:"shellPathForTerminal"`
}

// PreviewSettings configures the fzf preview window of a search mode.
type PreviewSettings struct {
	ShowPreview         bool   `yaml:"show_preview" mapstructure:"showPreview"`
	PreviewCommand      string `yaml:"preview_command" mapstructure:"previewCommand"`
	PreviewWindowConfig string `yaml:"preview_window_config" mapstructure:"previewWindowConfig"`
}

// FindWithinFilesSettings extends the preview settings with ripgrep options.
type FindWithinFilesSettings struct {
	PreviewSettings  `yaml:",inline" mapstructure:",squash"`
	FuzzRipgrepQuery bool `yaml:"fuzz_ripgrep_query" mapstructure:"fuzzRipgrepQuery"`
}

// TodoFixmeSettings configures the TODO/FIXME finder.
type TodoFixmeSettings struct {
	SearchPattern string `yaml:"search_pattern" mapstructure:"searchPattern"`
}

// AdvancedSettings holds rarely changed switches.
type AdvancedSettings struct {
	DisableStartupChecks      bool `yaml:"disable_startup_checks" mapstructure:"disableStartupChecks"`
	UseEditorSelectionAsQuery bool `yaml:"use_editor_selection_as_query" mapstructure:"useEditorSelectionAsQuery"`
}

// CustomTask is a user-defined command sent verbatim to the terminal.
type CustomTask struct {
	Name    string `yaml:"name" mapstructure:"name" validate:"notblank"`
	Command string `yaml:"command" mapstructure:"command" validate:"notblank"`
}

// ScriptSettings locates the bundled search scripts.
type ScriptSettings struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// TerminalSettings selects the terminal host backend.
type TerminalSettings struct {
	Backend string `yaml:"backend" mapstructure:"backend" validate:"omitempty,oneof=tmux"`
	Name    string `yaml:"name" mapstructure:"name"`
}

// EditorSettings configures the exec editor adapter used by `fif run`.
// Commands are Go templates over {{.Path}}, {{.Line}} and {{.Column}} (1-based).
type EditorSettings struct {
	OpenCommand           string `yaml:"open_command" mapstructure:"openCommand"`
	OpenCommandNoPosition string `yaml:"open_command_no_position" mapstructure:"openCommandNoPosition"`
}

// LogSettings controls log verbosity.
type LogSettings struct {
	Level string `yaml:"level" mapstructure:"level"`
	File  string `yaml:"file" mapstructure:"file"`
}
