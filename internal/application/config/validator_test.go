package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/doeshing/fif-go/internal/domain"
)

func validConfig() domain.Config {
	return domain.Config{
		General: domain.GeneralSettings{
			SearchCurrentWorkingDirectory: domain.PolicyNoWorkspaceOnly,
			AdditionalSearchLocationsWhen: domain.PolicyAlways,
		},
		Terminal: domain.TerminalSettings{Backend: "tmux"},
		Log:      domain.LogSettings{Level: "info"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*domain.Config) {}},
		{name: "bad cwd policy", mutate: func(c *domain.Config) { c.General.SearchCurrentWorkingDirectory = "sometimes" }, wantErr: "general.searchCurrentWorkingDirectory must be always|never|noWorkspaceOnly"},
		{name: "empty additional policy", mutate: func(c *domain.Config) { c.General.AdditionalSearchLocationsWhen = "" }, wantErr: "additionalSearchLocationsWhen"},
		{name: "task without command", mutate: func(c *domain.Config) { c.CustomTasks = []domain.CustomTask{{Name: "lint"}} }, wantErr: "customTasks[0].command must be set"},
		{name: "blank task name", mutate: func(c *domain.Config) {
			c.CustomTasks = []domain.CustomTask{{Name: "ok", Command: "x"}, {Name: "  ", Command: "y"}}
		}, wantErr: "customTasks[1].name must be set"},
		{name: "duplicate task", mutate: func(c *domain.Config) {
			c.CustomTasks = []domain.CustomTask{{Name: "a", Command: "x"}, {Name: "a", Command: "y"}}
		}, wantErr: "defined twice"},
		{name: "unknown backend", mutate: func(c *domain.Config) { c.Terminal.Backend = "screen" }, wantErr: "terminal.backend screen is not supported"},
		{name: "unknown log level", mutate: func(c *domain.Config) { c.Log.Level = "verbose" }, wantErr: "log.level"},
		{name: "none log level", mutate: func(c *domain.Config) { c.Log.Level = "NONE" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
