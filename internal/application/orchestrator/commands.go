package orchestrator

import (
	"path/filepath"
	"sort"

	"github.com/doeshing/fif-go/internal/domain"
)

// Scripts shipped next to the binary, without platform extension.
const (
	scriptFindFiles         = "find_files"
	scriptFindWithinFiles   = "find_within_files"
	scriptListLocations     = "list_search_locations"
	scriptFlightCheck       = "flight_check"
	scriptGitStatus         = "pick_file_from_git_status"
	scriptFindTodoFixme     = "find_todo_fixme"
	scriptResumePlaceholder = "resume_search"
	scriptCustomTask        = "run_custom_task"
)

// CommandTable returns the registered commands keyed by name.
func CommandTable() map[domain.CommandName]domain.CommandDescriptor {
	list := []domain.CommandDescriptor{
		{Name: domain.CmdFindFiles, Script: scriptFindFiles, Kind: domain.KindSimple, Resumable: true},
		{Name: domain.CmdFindFilesWithType, Script: scriptFindFiles, Kind: domain.KindNeedsPreSelection, Resumable: true},
		{Name: domain.CmdFindWithinFiles, Script: scriptFindWithinFiles, Kind: domain.KindSimple, Resumable: true},
		{Name: domain.CmdFindWithinFilesWithType, Script: scriptFindWithinFiles, Kind: domain.KindNeedsPreSelection, Resumable: true},
		{Name: domain.CmdListSearchLocations, Script: scriptListLocations, Kind: domain.KindSimple, WritesExplainFile: true},
		{Name: domain.CmdFlightCheck, Script: scriptFlightCheck, Kind: domain.KindSimple},
		{Name: domain.CmdResumeSearch, Script: scriptResumePlaceholder, Kind: domain.KindSimple, Resume: true},
		{Name: domain.CmdPickFileFromGitStatus, Script: scriptGitStatus, Kind: domain.KindSimple, Resumable: true, ForceNoSelection: true},
		{Name: domain.CmdFindTodoFixme, Script: scriptFindTodoFixme, Kind: domain.KindSimple, Resumable: true, ForceNoSelection: true},
		{Name: domain.CmdRunCustomTask, Script: scriptCustomTask, Kind: domain.KindCustomTask},
	}
	table := make(map[domain.CommandName]domain.CommandDescriptor, len(list))
	for _, d := range list {
		table[d.Name] = d
	}
	return table
}

// CommandNames lists the registered command names in sorted order.
func CommandNames() []domain.CommandName {
	table := CommandTable()
	names := make([]domain.CommandName, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// BindScripts resolves every descriptor that needs a script to a path under
// dir. An empty dir leaves the table unbound, which activation rejects.
func BindScripts(table map[domain.CommandName]domain.CommandDescriptor, dir string, platform domain.Platform) map[domain.CommandName]string {
	bindings := make(map[domain.CommandName]string, len(table))
	if dir == "" {
		return bindings
	}
	for name, d := range table {
		if !d.NeedsScript() {
			continue
		}
		bindings[name] = filepath.Join(dir, d.Script+platform.ScriptExtension())
	}
	return bindings
}
