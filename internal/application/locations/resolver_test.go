package locations

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/fif-go/internal/domain"
)

func TestResolveCWDPolicy(t *testing.T) {
	policies := []domain.SearchPolicy{domain.PolicyAlways, domain.PolicyNever, domain.PolicyNoWorkspaceOnly}
	workspaces := map[string][]domain.WorkspaceFolder{
		"no workspace":    nil,
		"open workspace":  {{URI: "file:///repo"}},
		"empty workspace": {},
	}

	for _, policy := range policies {
		for name, folders := range workspaces {
			t.Run(string(policy)+"/"+name, func(t *testing.T) {
				settings := domain.LocationSettings{
					CWDPolicy:        policy,
					AdditionalPolicy: domain.PolicyNever,
				}
				env := Environment{CWD: "/home/me", Folders: folders, Platform: domain.PlatformPOSIX}

				roots, errs := Resolve(settings, env)
				require.Empty(t, errs)

				want := policy == domain.PolicyAlways || (policy == domain.PolicyNoWorkspaceOnly && folders == nil)
				assert.Equal(t, want, contains(roots.Paths, "/home/me"))
			})
		}
	}
}

func TestResolveAccumulatesOrigins(t *testing.T) {
	settings := domain.LocationSettings{
		CWDPolicy:              domain.PolicyNever,
		AdditionalLocations:    []string{"/repo", "/notes"},
		AdditionalPolicy:       domain.PolicyAlways,
		SearchWorkspaceFolders: true,
	}
	env := Environment{
		CWD:      "/home/me",
		Folders:  []domain.WorkspaceFolder{{URI: "file:///repo"}},
		Platform: domain.PlatformPOSIX,
	}

	roots, errs := Resolve(settings, env)
	require.Empty(t, errs)

	// duplicates stay in the list handed to the external tool
	assert.Equal(t, []string{"/repo", "/notes", "/repo"}, roots.Paths)
	assert.Equal(t, domain.OriginSettings|domain.OriginWorkspace, roots.Origins["/repo"])
	assert.Equal(t, domain.OriginSettings, roots.Origins["/notes"])

	report := Explain(roots, false)
	assert.Equal(t, 2, strings.Count(report, "- /repo\n"))
	assert.Equal(t, 1, strings.Count(report, "- /notes\n"))
}

func TestResolveWorkspaceOnlyScenario(t *testing.T) {
	settings := domain.LocationSettings{
		CWDPolicy:              domain.PolicyNever,
		AdditionalPolicy:       domain.PolicyNever,
		SearchWorkspaceFolders: true,
	}
	env := Environment{CWD: "/home/me", Folders: []domain.WorkspaceFolder{{URI: "file:///repo"}}}

	roots, errs := Resolve(settings, env)
	require.Empty(t, errs)
	assert.Equal(t, []domain.SearchRoot{{Path: "/repo", Origin: domain.OriginWorkspace}}, roots.Roots())
}

func TestResolveSkipsUnsupportedScheme(t *testing.T) {
	settings := domain.LocationSettings{
		CWDPolicy:              domain.PolicyNever,
		AdditionalPolicy:       domain.PolicyNever,
		SearchWorkspaceFolders: true,
	}
	env := Environment{Folders: []domain.WorkspaceFolder{
		{URI: "vscode-remote://ssh-remote+box/home/me/repo"},
		{URI: "file:///work/tree"},
	}}

	roots, errs := Resolve(settings, env)
	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], domain.ErrUnsupportedFolderURI))
	assert.Equal(t, []string{"/work/tree"}, roots.Paths)
}

func TestDecodeFolderURI(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		platform domain.Platform
		want     string
		wantErr  bool
	}{
		{name: "posix", uri: "file:///home/me/my%20repo", platform: domain.PlatformPOSIX, want: "/home/me/my repo"},
		{name: "windows drive", uri: "file:///c%3A/Users/me/repo", platform: domain.PlatformWindows, want: `c:\Users\me\repo`},
		{name: "windows unescaped drive", uri: "file:///D:/src", platform: domain.PlatformWindows, want: `D:\src`},
		{name: "untitled scheme", uri: "untitled:Untitled-1", platform: domain.PlatformPOSIX, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeFolderURI(tt.uri, tt.platform)
			if tt.wantErr {
				require.Error(t, err)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExplainPlaceholders(t *testing.T) {
	roots := domain.SearchRoots{
		Paths:   []string{"/home/me"},
		Origins: map[string]domain.OriginSet{"/home/me": domain.OriginCWD},
	}

	want := "Paths added because they're the working directory:\n" +
		"- /home/me\n" +
		"Paths added because they're defined in the workspace:\n" +
		"- <none>\n" +
		"Paths added because they're the specified in the settings:\n" +
		"- <none>\n"
	assert.Equal(t, want, Explain(roots, false))
}

func TestExplainColor(t *testing.T) {
	report := Explain(domain.SearchRoots{}, true)
	assert.Contains(t, report, `\033[36mPaths added because they're the working directory:\033[0m`)
	assert.Equal(t, 3, strings.Count(report, "- <none>"))
}

func contains(list []string, want string) bool {
	for _, item := range list {
		if item == want {
			return true
		}
	}
	return false
}
