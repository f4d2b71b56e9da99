package domain

import "fmt"

// LocationSettings is the slice of configuration the search-location resolver needs.
type LocationSettings struct {
	CWDPolicy              SearchPolicy
	AdditionalLocations    []string
	AdditionalPolicy       SearchPolicy
	SearchWorkspaceFolders bool
}

// SelectionSettings is the slice of configuration the command-line builder needs.
type SelectionSettings struct {
	UseEditorSelectionAsQuery bool
}

// VisibilitySettings decides what happens to the terminal after a verdict.
type VisibilitySettings struct {
	HideAfterSuccess bool
	HideAfterFail    bool
	ClearAfterUse    bool
	KillAfterUse     bool
	RestoreFocus     bool
}

// SessionSettings is everything the terminal session injects into the
// external scripts' environment.
type SessionSettings struct {
	Name                 string
	ScriptDir            string
	FindFiles            PreviewSettings
	FindWithinFiles      PreviewSettings
	FuzzRipgrepQuery     bool
	UseGitIgnore         bool
	UseWorkspaceExcludes bool
	SearchExcludes       []string
	BatTheme             string
	TodoFixmePattern     string
	ShellPath            string
	InEditor             bool
	// WorkDir is the terminal's starting directory, filled in by the caller
	// from the resolved search roots.
	WorkDir string
}

// Locations extracts the resolver settings.
func (c Config) Locations() LocationSettings {
	return LocationSettings{
		CWDPolicy:              c.General.SearchCurrentWorkingDirectory,
		AdditionalLocations:    append([]string(nil), c.General.AdditionalSearchLocations...),
		AdditionalPolicy:       c.General.AdditionalSearchLocationsWhen,
		SearchWorkspaceFolders: c.General.SearchWorkspaceFolders,
	}
}

// Selection extracts the command-line builder settings.
func (c Config) Selection() SelectionSettings {
	return SelectionSettings{UseEditorSelectionAsQuery: c.Advanced.UseEditorSelectionAsQuery}
}

// Visibility extracts the post-verdict terminal policy.
func (c Config) Visibility() VisibilitySettings {
	return VisibilitySettings{
		HideAfterSuccess: c.General.HideTerminalAfterSuccess,
		HideAfterFail:    c.General.HideTerminalAfterFail,
		ClearAfterUse:    c.General.ClearTerminalAfterUse,
		KillAfterUse:     c.General.KillTerminalAfterUse,
		RestoreFocus:     c.General.RestoreFocusTerminal,
	}
}

// Session extracts the terminal session settings.
func (c Config) Session() SessionSettings {
	name := c.Terminal.Name
	if name == "" {
		name = DefaultTerminalName
	}
	return SessionSettings{
		Name:                 name,
		ScriptDir:            c.Scripts.Dir,
		FindFiles:            c.FindFiles,
		FindWithinFiles:      c.FindWithinFiles.PreviewSettings,
		FuzzRipgrepQuery:     c.FindWithinFiles.FuzzRipgrepQuery,
		UseGitIgnore:         c.General.UseGitIgnoreExcludes,
		UseWorkspaceExcludes: c.General.UseWorkspaceSearchExcludes,
		SearchExcludes:       append([]string(nil), c.General.SearchExcludes...),
		BatTheme:             c.General.BatTheme,
		TodoFixmePattern:     c.FindTodoFixme.SearchPattern,
		ShellPath:            c.General.ShellPathForTerminal,
		InEditor:             c.General.UseTerminalInEditor,
	}
}

// ShouldHide applies the visibility policy to a verdict. Only success and
// failure verdicts ever hide the terminal.
func (v VisibilitySettings) ShouldHide(verdict Verdict) bool {
	switch verdict {
	case VerdictSuccess:
		return v.HideAfterSuccess
	case VerdictFailure:
		return v.HideAfterFail
	default:
		return false
	}
}

// FindCustomTask searches for a custom task by its name
func (c Config) FindCustomTask(name string) (CustomTask, bool) {
	return FindCustomTask(c.CustomTasks, name)
}

// FindCustomTask returns the first task in tasks called name.
func FindCustomTask(tasks []CustomTask, name string) (CustomTask, bool) {
	for _, task := range tasks {
		if task.Name == name {
			return task, true
		}
	}
	return CustomTask{}, false
}

// AddCustomTask adds a new custom task to the configuration
// Returns an error if a task with the same name already exists
func (c *Config) AddCustomTask(task CustomTask) error {
	if task.Name == "" || task.Command == "" {
		return fmt.Errorf("custom task needs both a name and a command")
	}
	if _, exists := c.FindCustomTask(task.Name); exists {
		return fmt.Errorf("custom task with name %s already exists", task.Name)
	}
	c.CustomTasks = append(c.CustomTasks, task)
	return nil
}

// RemoveCustomTask removes a custom task from the configuration by name
func (c *Config) RemoveCustomTask(name string) error {
	for i, task := range c.CustomTasks {
		if task.Name == name {
			c.CustomTasks = append(c.CustomTasks[:i:i], c.CustomTasks[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("custom task %s not found", name)
}

// Clone returns a deep copy so overlays never alias the source snapshot.
func (c Config) Clone() Config {
	out := c
	out.General.SearchExcludes = append([]string(nil), c.General.SearchExcludes...)
	out.General.AdditionalSearchLocations = append([]string(nil), c.General.AdditionalSearchLocations...)
	out.CustomTasks = append([]CustomTask(nil), c.CustomTasks...)
	return out
}
