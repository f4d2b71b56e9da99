package domain

// CommandName is the logical name a host editor registers a callback for.
type CommandName string

const (
	CmdFindFiles               CommandName = "findFiles"
	CmdFindFilesWithType       CommandName = "findFilesWithType"
	CmdFindWithinFiles         CommandName = "findWithinFiles"
	CmdFindWithinFilesWithType CommandName = "findWithinFilesWithType"
	CmdListSearchLocations     CommandName = "listSearchLocations"
	CmdFlightCheck             CommandName = "flightCheck"
	CmdResumeSearch            CommandName = "resumeSearch"
	CmdPickFileFromGitStatus   CommandName = "pickFileFromGitStatus"
	CmdFindTodoFixme           CommandName = "findTodoFixme"
	CmdRunCustomTask           CommandName = "runCustomTask"
)

// CommandKind selects the dispatcher behaviour before a command is sent.
type CommandKind int

const (
	// KindSimple builds and sends the command line directly.
	KindSimple CommandKind = iota
	// KindNeedsPreSelection asks the user for a type filter first.
	KindNeedsPreSelection
	// KindCustomTask asks the user for a custom task and sends it verbatim.
	KindCustomTask
)

func (k CommandKind) String() string {
	switch k {
	case KindSimple:
		return "simple"
	case KindNeedsPreSelection:
		return "needs-pre-selection"
	case KindCustomTask:
		return "custom-task"
	default:
		return "unknown"
	}
}

// CommandDescriptor describes a registered command.
type CommandDescriptor struct {
	Name   CommandName
	Script string
	Kind   CommandKind
	// Resumable commands become the target of resumeSearch.
	Resumable bool
	// Resume replays the last resumable command.
	Resume bool
	// ForceNoSelection always emits HAS_SELECTION=0.
	ForceNoSelection bool
	// WritesExplainFile refreshes the search-roots explanation before running.
	WritesExplainFile bool
}

// NeedsScript reports whether the descriptor must be bound to a script path.
func (d CommandDescriptor) NeedsScript() bool {
	return d.Kind != KindCustomTask && !d.Resume
}

// CommandRequest is one invocation, immutable once built.
type CommandRequest struct {
	Name              CommandName
	ScriptPath        string
	ExtraEnv          map[string]string
	UsesSelectionText bool
	Selection         string
	ForceNoSelection  bool
	IsResumed         bool
	WithArgs          bool
	TypeFilter        []string
}

// TypeOption is one entry of `rg --type-list`.
type TypeOption struct {
	Name  string `json:"name"`
	Globs string `json:"globs"`
}

// ClearTypeFilterToken resets the type filter selection.
const ClearTypeFilterToken = "X"
