// Package doctor runs the flight check: the external tools the search
// scripts need must be on PATH before any command runs.
package doctor

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/doeshing/fif-go/internal/domain"
	"github.com/doeshing/fif-go/internal/ports"
)

const notInstalled = "not installed"

// Service runs environment diagnostics.
type Service struct {
	Executor ports.CommandExecutor
	Host     ports.TerminalHost
	Logger   ports.Logger
	Platform domain.Platform
}

// Run executes the flight check script and probes the terminal backend
// concurrently. Missing tools are aggregated into a *domain.FlightCheckError.
func (s *Service) Run(ctx context.Context, scriptPath string) (domain.HealthReport, error) {
	if scriptPath == "" {
		check := fail("Flight check script", "failed to find flight check script")
		return domain.HealthReport{Checks: []domain.HealthCheck{check}}, fmt.Errorf("flight check: %w", domain.ErrMissingScriptBinding)
	}

	ctx, cancel := context.WithTimeout(ctx, domain.DefaultCommandTimeout)
	defer cancel()

	var (
		mu       sync.Mutex
		checks   []domain.HealthCheck
		hostLine domain.HealthCheck
		missing  []string
		runErr   error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		name, args := s.scriptCommand(scriptPath)
		result, err := s.Executor.Execute(gctx, name, args...)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			runErr = fmt.Errorf("run flight check: %w", err)
			checks = append(checks, fail("Flight check script", strings.TrimSpace(err.Error()+" "+result.Stderr)))
			return nil
		}
		values := ParseKeyValues(result.Stdout)
		for _, tool := range RequiredTools(s.Platform) {
			status, ok := values[tool]
			if !ok || status == notInstalled {
				missing = append(missing, tool)
				checks = append(checks, fail(tool, "not found on your PATH"))
				continue
			}
			checks = append(checks, okCheck(tool, status))
		}
		return nil
	})
	if s.Host != nil {
		g.Go(func() error {
			check := okCheck("Terminal backend", s.Host.Name()+" available")
			if !s.Host.Available(gctx) {
				check = fail("Terminal backend", s.Host.Name()+" is not available")
			}
			mu.Lock()
			hostLine = check
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if hostLine.Name != "" {
		checks = append(checks, hostLine)
	}
	report := domain.HealthReport{Checks: checks}

	if runErr != nil {
		s.Logger.Error("Failed to run checks", runErr, nil)
		return report, runErr
	}
	if len(missing) > 0 {
		err := &domain.FlightCheckError{Missing: missing}
		s.Logger.Error("Flight check failed", err, map[string]interface{}{"missing": missing})
		return report, err
	}
	s.Logger.Info("Flight check passed", nil)
	return report, nil
}

func (s *Service) scriptCommand(scriptPath string) (string, []string) {
	if s.Platform.IsWindows() {
		return "powershell.exe", []string{"-ExecutionPolicy", "Bypass", "-File", scriptPath}
	}
	return scriptPath, nil
}

// RequiredTools lists the tools the scripts depend on for platform.
func RequiredTools(platform domain.Platform) []string {
	tools := []string{"bat", "fzf", "rg"}
	if !platform.IsWindows() {
		tools = append(tools, "sed")
	}
	return tools
}

// ParseKeyValues reads `key: value` lines; other lines are ignored.
func ParseKeyValues(out string) map[string]string {
	values := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		key, value, found := strings.Cut(strings.TrimRight(line, "\r"), ": ")
		if !found {
			continue
		}
		values[key] = value
	}
	return values
}

func okCheck(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthOK, Details: details}
}

func fail(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthError, Details: details}
}
