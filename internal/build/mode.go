package build

import "fmt"

// Mode selects the pipeline behavior for a run. It is immutable per
// invocation and chosen by the trigger (CLI command, schedule, or watcher).
type Mode string

const (
	// ModeCheck validates compilability only; the partial-build directive
	// stays active and nothing is published.
	ModeCheck Mode = "check"
	// ModeRelease compiles the full manuscript (directive stripped) and
	// publishes the artifact on success.
	ModeRelease Mode = "release"
)

// ParseMode normalizes a user-supplied mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeCheck, ModeRelease:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown build mode: %q", s)
	}
}

func (m Mode) String() string { return string(m) }
