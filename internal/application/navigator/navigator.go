// Package navigator parses result records and opens them in the editor.
package navigator

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/doeshing/fif-go/internal/domain"
	"github.com/doeshing/fif-go/internal/ports"
)

var windowsRecord = regexp.MustCompile(`^\s*(?P<file>([a-zA-Z][:])?[^:]+)([:](?P<line>\d+))?\s*([:](?P<col>\d+))?.*`)

// Parse splits the payload into open targets in payload order. Lines that
// cannot be parsed are returned as *domain.UnparseableResultError values and
// do not stop the batch.
func Parse(payload string, platform domain.Platform) ([]domain.OpenTarget, []error) {
	var targets []domain.OpenTarget
	var errs []error
	for _, line := range strings.Split(payload, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		target, err := ParseLine(line, platform)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		targets = append(targets, target)
	}
	return targets, errs
}

// ParseLine parses one `path[:line[:col]]` record. Line and column are
// 1-based on input and 0-based on output.
func ParseLine(record string, platform domain.Platform) (domain.OpenTarget, error) {
	var file, lineField, colField string
	if platform.IsWindows() {
		m := windowsRecord.FindStringSubmatch(record)
		if m == nil {
			return domain.OpenTarget{}, &domain.UnparseableResultError{Line: record}
		}
		file = m[windowsRecord.SubexpIndex("file")]
		lineField = m[windowsRecord.SubexpIndex("line")]
		colField = m[windowsRecord.SubexpIndex("col")]
	} else {
		parts := strings.SplitN(record, ":", 3)
		file = parts[0]
		if len(parts) > 1 {
			lineField = parts[1]
		}
		if len(parts) > 2 {
			colField = parts[2]
		}
	}

	file = strings.TrimSpace(file)
	if file == "" {
		return domain.OpenTarget{}, &domain.UnparseableResultError{Line: record}
	}
	target := domain.OpenTarget{Path: file}
	if lineField == "" {
		return target, nil
	}

	line, err := strconv.Atoi(strings.TrimSpace(lineField))
	if err != nil {
		return target, nil
	}
	col := 1
	if colField != "" {
		// ripgrep's vimgrep output appends the match text after the column
		digits, _, _ := strings.Cut(strings.TrimSpace(colField), ":")
		if n, err := strconv.Atoi(digits); err == nil {
			col = n
		}
	}
	if line-1 >= 0 && col-1 >= 0 {
		target.Position = &domain.Position{Line: line - 1, Column: col - 1}
	}
	return target, nil
}

// Navigator drives the editor for a decoded payload.
type Navigator struct {
	editor   ports.Editor
	notifier ports.Notifier
	logger   ports.Logger
	platform domain.Platform
}

// New creates a Navigator.
func New(editor ports.Editor, notifier ports.Notifier, logger ports.Logger, platform domain.Platform) *Navigator {
	return &Navigator{editor: editor, notifier: notifier, logger: logger, platform: platform}
}

// Navigate opens every parsed target. Unparseable lines and failed opens
// are reported as warnings. It returns the number of documents opened.
func (n *Navigator) Navigate(ctx context.Context, payload string, preview bool) int {
	targets, errs := Parse(payload, n.platform)
	for _, err := range errs {
		n.warn(err.Error(), err)
	}

	opened := 0
	for _, target := range targets {
		if err := n.editor.Open(ctx, domain.OpenRequest{Target: target, Preview: preview}); err != nil {
			n.warn(fmt.Sprintf("Could not open %s: %v", target.Path, err), err)
			continue
		}
		opened++
	}
	n.logger.Debug("Navigated results", map[string]interface{}{"opened": opened, "skipped": len(errs)})
	return opened
}

func (n *Navigator) warn(text string, err error) {
	n.logger.Warn(text, map[string]interface{}{"error": err.Error()})
	n.notifier.Notify(domain.MessageWarning, text)
}
