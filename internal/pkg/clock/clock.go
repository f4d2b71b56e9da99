// Package clock provides the wall-clock ports.Clock.
package clock

import (
	"time"

	"github.com/doeshing/fif-go/internal/ports"
)

// Real uses the time package.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) AfterFunc(d time.Duration, f func()) ports.Timer {
	return time.AfterFunc(d, f)
}

var _ ports.Clock = Real{}
