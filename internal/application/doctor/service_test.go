package doctor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/fif-go/internal/domain"
	"github.com/doeshing/fif-go/internal/testing/fakes"
)

const script = "/opt/fif/flight_check.sh"

func TestRunPasses(t *testing.T) {
	exec := &fakes.Executor{Outputs: map[string]string{
		script: "bat: 0.24.0\nfzf: 0.44\nrg: ripgrep 14.1.0\nsed: GNU sed\n",
	}}
	svc := &Service{Executor: exec, Host: fakes.NewHost(), Logger: fakes.Logger{}, Platform: domain.PlatformPOSIX}

	report, err := svc.Run(context.Background(), script)
	require.NoError(t, err)
	assert.False(t, report.HasErrors())
	assert.Len(t, report.Checks, 5)
	assert.Equal(t, "Terminal backend", report.Checks[4].Name)
}

func TestRunAggregatesMissingTools(t *testing.T) {
	exec := &fakes.Executor{Outputs: map[string]string{
		script: "bat: not installed\nrg: 14.1.0\nnoise line\n",
	}}
	svc := &Service{Executor: exec, Logger: fakes.Logger{}, Platform: domain.PlatformPOSIX}

	report, err := svc.Run(context.Background(), script)
	var fce *domain.FlightCheckError
	require.True(t, errors.As(err, &fce))
	assert.Equal(t, []string{"bat", "fzf", "sed"}, fce.Missing)
	assert.ErrorIs(t, err, domain.ErrFlightCheckFailed)
	assert.Equal(t,
		"Make sure you have the required command line tools installed. bat not found on your PATH. fzf not found on your PATH. sed not found on your PATH.",
		err.Error())
	assert.True(t, report.HasErrors())
}

func TestRunWindowsSkipsSedAndUsesPowerShell(t *testing.T) {
	exec := &fakes.Executor{Outputs: map[string]string{
		"powershell.exe": "bat: 0.24.0\r\nfzf: 0.44\r\nrg: 14.1.0\r\n",
	}}
	svc := &Service{Executor: exec, Logger: fakes.Logger{}, Platform: domain.PlatformWindows}

	_, err := svc.Run(context.Background(), `C:\fif\flight_check.ps1`)
	require.NoError(t, err)
	require.Len(t, exec.Calls, 1)
	assert.Equal(t, []string{"powershell.exe", "-ExecutionPolicy", "Bypass", "-File", `C:\fif\flight_check.ps1`}, exec.Calls[0])
}

func TestRunScriptFailure(t *testing.T) {
	exec := &fakes.Executor{Errs: map[string]error{script: errors.New("exit status 127")}}
	svc := &Service{Executor: exec, Logger: fakes.Logger{}, Platform: domain.PlatformPOSIX}

	report, err := svc.Run(context.Background(), script)
	require.Error(t, err)
	assert.True(t, report.HasErrors())
}

func TestRunWithoutScript(t *testing.T) {
	svc := &Service{Executor: &fakes.Executor{}, Logger: fakes.Logger{}}
	_, err := svc.Run(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrMissingScriptBinding)
}

func TestParseKeyValues(t *testing.T) {
	got := ParseKeyValues("bat: 0.24\nbroken\nrg: not installed\n")
	assert.Equal(t, map[string]string{"bat": "0.24", "rg": "not installed"}, got)
}
