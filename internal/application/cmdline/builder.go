// Package cmdline turns a command request into the literal text typed into
// the session terminal.
package cmdline

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/doeshing/fif-go/internal/domain"
	"github.com/doeshing/fif-go/internal/ports"
)

// Environment variables consumed by the search scripts.
const (
	EnvHasSelection = "HAS_SELECTION"
	EnvTypeFilter   = "TYPE_FILTER"
	EnvResumeSearch = "RESUME_SEARCH"
)

var typeTokenPattern = regexp.MustCompile(`^[A-Za-z0-9_+.-]+$`)

// Builder assembles command lines. It is the only component that writes the
// selection side-channel file.
type Builder struct {
	platform domain.Platform
	writer   ports.SelectionWriter
	logger   ports.Logger
}

// NewBuilder constructs a Builder for the given platform.
func NewBuilder(platform domain.Platform, writer ports.SelectionWriter, logger ports.Logger) *Builder {
	return &Builder{platform: platform, writer: writer, logger: logger}
}

// Build returns the command line for req. Prefix assignments are emitted in a
// fixed order (selection flag, type filter, resume flag, extra env) and the
// selection text itself only ever reaches the side-channel file.
func (b *Builder) Build(req domain.CommandRequest, paths domain.SessionPaths, roots domain.SearchRoots, settings domain.SelectionSettings) (string, error) {
	if req.ScriptPath == "" {
		return "", fmt.Errorf("%s: %w", req.Name, domain.ErrMissingScriptBinding)
	}

	var sb strings.Builder

	hasSelection, err := b.prepareSelection(req, paths, settings)
	if err != nil {
		return "", err
	}
	if hasSelection {
		sb.WriteString(b.assign(EnvHasSelection, "1"))
	} else {
		sb.WriteString(b.assign(EnvHasSelection, "0"))
	}

	if filter := b.typeFilter(req.TypeFilter); filter != "" {
		sb.WriteString(b.assign(EnvTypeFilter, b.Quote(filter)))
	}

	if req.IsResumed {
		sb.WriteString(b.assign(EnvResumeSearch, "1"))
	}

	keys := make([]string, 0, len(req.ExtraEnv))
	for k := range req.ExtraEnv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(b.assign(k, b.Quote(req.ExtraEnv[k])))
	}

	sb.WriteString(b.script(req.ScriptPath))

	if req.WithArgs {
		for _, path := range roots.Paths {
			sb.WriteString(" ")
			sb.WriteString(b.Quote(path))
		}
	}

	line := sb.String()
	if b.logger != nil {
		b.logger.Info("Get command", map[string]interface{}{"command": line})
	}
	return line, nil
}

// prepareSelection writes the selection file when it will be used. The write
// happens strictly before the flag is emitted.
func (b *Builder) prepareSelection(req domain.CommandRequest, paths domain.SessionPaths, settings domain.SelectionSettings) (bool, error) {
	if req.ForceNoSelection || !settings.UseEditorSelectionAsQuery || !req.UsesSelectionText {
		return false, nil
	}
	if req.Selection == "" {
		return false, nil
	}
	if b.writer == nil || paths.Selection == "" {
		return false, fmt.Errorf("selection file unavailable for %s", req.Name)
	}
	if err := b.writer.WriteSelection(paths.Selection, req.Selection); err != nil {
		return false, fmt.Errorf("write selection file: %w", err)
	}
	return true, nil
}

// typeFilter joins the filter tokens with ':'. Tokens that are not plain
// ripgrep type names are dropped.
func (b *Builder) typeFilter(tokens []string) string {
	valid := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if typeTokenPattern.MatchString(tok) {
			valid = append(valid, tok)
			continue
		}
		if b.logger != nil {
			b.logger.Warn("dropping invalid type filter token", map[string]interface{}{"token": tok})
		}
	}
	return strings.Join(valid, ":")
}

// assign renders one environment assignment, including its trailing separator.
func (b *Builder) assign(name, value string) string {
	if b.platform.IsWindows() {
		return fmt.Sprintf("$Env:%s=%s; ", name, value)
	}
	return fmt.Sprintf("%s=%s ", name, value)
}

func (b *Builder) script(path string) string {
	if !strings.ContainsAny(path, " \t'\"") {
		return path
	}
	if b.platform.IsWindows() {
		return "& " + b.Quote(path)
	}
	return b.Quote(path)
}

// Quote wraps s in single quotes for the platform shell.
func (b *Builder) Quote(s string) string {
	if b.platform.IsWindows() {
		return "'" + strings.ReplaceAll(s, "'", "''") + "'"
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
