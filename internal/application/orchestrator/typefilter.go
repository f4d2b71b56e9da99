package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/doeshing/fif-go/internal/domain"
	"github.com/doeshing/fif-go/internal/ports"
)

const typeListCacheKey = "rg-type-list"

// TypeOptions lists ripgrep's file types, served from the cache when fresh.
func TypeOptions(ctx context.Context, exec ports.CommandExecutor, cache ports.CacheRepository, logger ports.Logger, now time.Time) ([]domain.TypeOption, error) {
	if cache != nil {
		if entry, ok, err := cache.Get(typeListCacheKey); err == nil && ok {
			return ParseTypeList(entry.Value), nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, domain.DefaultCommandTimeout)
	defer cancel()
	result, err := exec.Execute(ctx, "rg", "--type-list")
	if err != nil {
		return nil, fmt.Errorf("rg --type-list: %w", err)
	}
	if cache != nil {
		if err := cache.Set(domain.CacheEntry{Key: typeListCacheKey, Value: result.Stdout, CreatedAt: now}); err != nil {
			logger.Debug("type list not cached", map[string]interface{}{"error": err.Error()})
		}
	}
	return ParseTypeList(result.Stdout), nil
}

// ParseTypeList parses `name: glob, glob` lines.
func ParseTypeList(out string) []domain.TypeOption {
	var options []domain.TypeOption
	for _, line := range strings.Split(out, "\n") {
		name, globs, _ := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		options = append(options, domain.TypeOption{Name: name, Globs: strings.TrimSpace(globs)})
	}
	return options
}

// ApplyTypeSelection returns the tokens after the last clear token. Blank
// tokens are dropped.
func ApplyTypeSelection(tokens []string) []string {
	start := 0
	for i, tok := range tokens {
		if tok == domain.ClearTypeFilterToken {
			start = i + 1
		}
	}
	var out []string
	for _, tok := range tokens[start:] {
		if tok = strings.TrimSpace(tok); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}
