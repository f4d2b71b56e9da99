package config

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/doeshing/fif-go/internal/domain"
)

// SettingsPrefix is the namespace editor hosts put in front of every key.
const SettingsPrefix = "find-it-faster."

// ApplySettings overlays editor settings onto base and returns a new snapshot.
// Keys may be nested maps or dotted paths such as "general.batTheme", with or
// without the find-it-faster prefix. Slices in settings replace the base
// slices wholesale.
func ApplySettings(base domain.Config, settings map[string]interface{}) (domain.Config, error) {
	cfg := base.Clone()
	if len(settings) == 0 {
		return cfg, nil
	}

	tree, err := expandKeys(settings)
	if err != nil {
		return base, err
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		ZeroFields:       true,
		ErrorUnused:      false,
		Squash:           true,
	})
	if err != nil {
		return base, err
	}
	if err := decoder.Decode(tree); err != nil {
		return base, fmt.Errorf("apply settings: %w", err)
	}
	return hydrateDefaults(cfg), nil
}

func expandKeys(flat map[string]interface{}) (map[string]interface{}, error) {
	tree := make(map[string]interface{})
	for key, value := range flat {
		key = strings.TrimPrefix(key, SettingsPrefix)
		if nested, ok := value.(map[string]interface{}); ok {
			sub, err := expandKeys(nested)
			if err != nil {
				return nil, err
			}
			value = sub
		}
		if err := insert(tree, strings.Split(key, "."), value); err != nil {
			return nil, err
		}
	}
	return tree, nil
}

func insert(tree map[string]interface{}, path []string, value interface{}) error {
	head := path[0]
	if head == "" {
		return fmt.Errorf("empty settings key segment")
	}
	if len(path) == 1 {
		if existing, ok := tree[head].(map[string]interface{}); ok {
			incoming, ok := value.(map[string]interface{})
			if !ok {
				return fmt.Errorf("settings key %q is both a value and a section", head)
			}
			for k, v := range incoming {
				existing[k] = v
			}
			return nil
		}
		tree[head] = value
		return nil
	}
	child, ok := tree[head].(map[string]interface{})
	if !ok {
		if _, exists := tree[head]; exists {
			return fmt.Errorf("settings key %q is both a value and a section", head)
		}
		child = make(map[string]interface{})
		tree[head] = child
	}
	return insert(child, path[1:], value)
}
