package domain

// Platform identifies the host operating system conventions that matter to
// command construction, URI decoding and result parsing.
type Platform string

const (
	PlatformPOSIX   Platform = "posix"
	PlatformWindows Platform = "windows"
)

// PlatformFor maps a GOOS value to a Platform.
func PlatformFor(goos string) Platform {
	if goos == "windows" {
		return PlatformWindows
	}
	return PlatformPOSIX
}

// IsWindows reports whether p uses drive letters and backslashes.
func (p Platform) IsWindows() bool {
	return p == PlatformWindows
}

// ScriptExtension returns the extension of the bundled scripts on p.
func (p Platform) ScriptExtension() string {
	if p.IsWindows() {
		return ".ps1"
	}
	return ".sh"
}
