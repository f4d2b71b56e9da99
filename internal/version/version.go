// Package version carries build metadata set through -ldflags:
//
//	go build -ldflags "-X github.com/doeshing/fif-go/internal/version.Version=v0.3.0"
package version

var (
	Version   = "dev"
	Commit    = ""
	BuildDate = ""
)
