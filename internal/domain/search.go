package domain

// SearchPolicy gates a search-location rule.
type SearchPolicy string

const (
	PolicyAlways          SearchPolicy = "always"
	PolicyNever           SearchPolicy = "never"
	PolicyNoWorkspaceOnly SearchPolicy = "noWorkspaceOnly"
)

// Valid reports whether p is one of the known policies.
func (p SearchPolicy) Valid() bool {
	switch p {
	case PolicyAlways, PolicyNever, PolicyNoWorkspaceOnly:
		return true
	}
	return false
}

// Allows reports whether the rule applies given the workspace state.
func (p SearchPolicy) Allows(workspaceOpen bool) bool {
	switch p {
	case PolicyAlways:
		return true
	case PolicyNoWorkspaceOnly:
		return !workspaceOpen
	default:
		return false
	}
}

// OriginSet records every rule that caused a search root to be included.
type OriginSet uint8

const (
	OriginCWD OriginSet = 1 << iota
	OriginWorkspace
	OriginSettings
)

// Has reports whether all bits of o are set.
func (s OriginSet) Has(o OriginSet) bool {
	return s&o == o && o != 0
}

// SearchRoot is a directory handed to the search scripts.
type SearchRoot struct {
	Path   string
	Origin OriginSet
}

// SearchRoots is the resolver output. Paths keeps the order and duplicates
// passed to the external tool; Origins accumulates the origin mask per path.
type SearchRoots struct {
	Paths   []string
	Origins map[string]OriginSet
}

// Roots returns the ordered, deduplicated view with accumulated origins.
func (r SearchRoots) Roots() []SearchRoot {
	seen := make(map[string]bool, len(r.Paths))
	out := make([]SearchRoot, 0, len(r.Paths))
	for _, p := range r.Paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, SearchRoot{Path: p, Origin: r.Origins[p]})
	}
	return out
}

// WorkspaceFolder is a folder of the host editor workspace in URI form.
type WorkspaceFolder struct {
	URI string
}
