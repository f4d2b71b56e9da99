// Package locations computes the ordered list of directories handed to the
// search scripts and explains why each of them was included.
package locations

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/doeshing/fif-go/internal/domain"
)

const fileScheme = "file://"

// Environment is the host state the resolver reads. Folders is nil when no
// workspace is open; an empty, non-nil slice is an open workspace without folders.
type Environment struct {
	CWD      string
	Folders  []domain.WorkspaceFolder
	Platform domain.Platform
}

// WorkspaceOpen reports whether the host has a workspace.
func (e Environment) WorkspaceOpen() bool {
	return e.Folders != nil
}

// Resolve applies the location rules in order: working directory, configured
// locations, workspace folders. It never touches the filesystem. Unsupported
// folder URIs are reported through the returned errors and skipped.
func Resolve(settings domain.LocationSettings, env Environment) (domain.SearchRoots, []error) {
	roots := domain.SearchRoots{Origins: make(map[string]domain.OriginSet)}
	add := func(path string, origin domain.OriginSet) {
		roots.Paths = append(roots.Paths, path)
		roots.Origins[path] |= origin
	}

	if settings.CWDPolicy.Allows(env.WorkspaceOpen()) && env.CWD != "" {
		add(env.CWD, domain.OriginCWD)
	}

	if settings.AdditionalPolicy.Allows(env.WorkspaceOpen()) {
		for _, loc := range settings.AdditionalLocations {
			add(loc, domain.OriginSettings)
		}
	}

	var errs []error
	if settings.SearchWorkspaceFolders && env.WorkspaceOpen() {
		for _, folder := range env.Folders {
			path, err := DecodeFolderURI(folder.URI, env.Platform)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			add(path, domain.OriginWorkspace)
		}
	}
	return roots, errs
}

// DecodeFolderURI turns a file:// folder URI into a native path. Non-file
// schemes yield an empty path and ErrUnsupportedFolderURI.
func DecodeFolderURI(uri string, platform domain.Platform) (string, error) {
	decoded, err := url.PathUnescape(uri)
	if err != nil {
		decoded = uri
	}
	if !strings.HasPrefix(decoded, fileScheme) {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedFolderURI, uri)
	}
	if platform.IsWindows() {
		path := strings.TrimPrefix(decoded, fileScheme+"/")
		path = strings.ReplaceAll(path, "/", `\`)
		path = strings.ReplaceAll(path, "%3A", ":")
		return strings.ReplaceAll(path, "%3a", ":"), nil
	}
	return strings.TrimPrefix(decoded, fileScheme), nil
}
