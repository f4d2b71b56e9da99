package session

import (
	"strings"

	"github.com/doeshing/fif-go/internal/domain"
)

// Environment variable names shared with the search scripts.
const (
	EnvActive                        = "FIND_IT_FASTER_ACTIVE"
	EnvHistControl                   = "HISTCONTROL"
	EnvExtensionPath                 = "EXTENSION_PATH"
	EnvFindFilesPreviewEnabled       = "FIND_FILES_PREVIEW_ENABLED"
	EnvFindFilesPreviewCommand       = "FIND_FILES_PREVIEW_COMMAND"
	EnvFindFilesPreviewWindow        = "FIND_FILES_PREVIEW_WINDOW_CONFIG"
	EnvFindWithinFilesPreviewEnabled = "FIND_WITHIN_FILES_PREVIEW_ENABLED"
	EnvFindWithinFilesPreviewCommand = "FIND_WITHIN_FILES_PREVIEW_COMMAND"
	EnvFindWithinFilesPreviewWindow  = "FIND_WITHIN_FILES_PREVIEW_WINDOW_CONFIG"
	EnvUseGitIgnore                  = "USE_GITIGNORE"
	EnvGlobs                         = "GLOBS"
	EnvCanaryFile                    = "CANARY_FILE"
	EnvSelectionFile                 = "SELECTION_FILE"
	EnvLastQueryFile                 = "LAST_QUERY_FILE"
	EnvLastPosFile                   = "LAST_POS_FILE"
	EnvExplainFile                   = "EXPLAIN_FILE"
	EnvBatTheme                      = "BAT_THEME"
	EnvFuzzRgQuery                   = "FUZZ_RG_QUERY"
	EnvTodoFixmePattern              = "FIND_TODO_FIXME_SEARCH_PATTERN"
)

// BuildEnvironment returns the plain key/value pairs injected into the
// session terminal.
func BuildEnvironment(settings domain.SessionSettings, paths domain.SessionPaths) map[string]string {
	globs := ""
	if settings.UseWorkspaceExcludes {
		globs = IgnoreGlobs(settings.SearchExcludes)
	}
	return map[string]string{
		EnvActive:                        "1",
		EnvHistControl:                   "ignoreboth",
		EnvExtensionPath:                 settings.ScriptDir,
		EnvFindFilesPreviewEnabled:       flag(settings.FindFiles.ShowPreview),
		EnvFindFilesPreviewCommand:       settings.FindFiles.PreviewCommand,
		EnvFindFilesPreviewWindow:        settings.FindFiles.PreviewWindowConfig,
		EnvFindWithinFilesPreviewEnabled: flag(settings.FindWithinFiles.ShowPreview),
		EnvFindWithinFilesPreviewCommand: settings.FindWithinFiles.PreviewCommand,
		EnvFindWithinFilesPreviewWindow:  settings.FindWithinFiles.PreviewWindowConfig,
		EnvUseGitIgnore:                  flag(settings.UseGitIgnore),
		EnvGlobs:                         globs,
		EnvCanaryFile:                    paths.Sentinel,
		EnvSelectionFile:                 paths.Selection,
		EnvLastQueryFile:                 paths.LastQuery,
		EnvLastPosFile:                   paths.LastPosition,
		EnvExplainFile:                   paths.Explain,
		EnvBatTheme:                      settings.BatTheme,
		EnvFuzzRgQuery:                   flag(settings.FuzzRipgrepQuery),
		EnvTodoFixmePattern:              settings.TodoFixmePattern,
	}
}

// IgnoreGlobs renders exclude patterns as ripgrep negated globs. Blank
// entries, comments and negations are skipped; duplicates are collapsed.
func IgnoreGlobs(excludes []string) string {
	seen := make(map[string]bool, len(excludes))
	var parts []string
	for _, raw := range excludes {
		pattern := strings.TrimSpace(raw)
		if pattern == "" || strings.HasPrefix(pattern, "#") || strings.HasPrefix(pattern, "!") {
			continue
		}
		if seen[pattern] {
			continue
		}
		seen[pattern] = true
		parts = append(parts, "--glob '!"+strings.ReplaceAll(pattern, "'", "")+"'")
	}
	return strings.Join(parts, " ")
}

func flag(on bool) string {
	if on {
		return "1"
	}
	return "0"
}
