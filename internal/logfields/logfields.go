package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyMode       = "mode"
	KeyEntry      = "entry"
	KeyArtifact   = "artifact"
	KeyTag        = "tag"
	KeyRevision   = "revision"
	KeyDurationMS = "duration_ms"
	KeySchedule   = "schedule"
	KeyTool       = "tool"
	KeyPath       = "path"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Mode(m string) slog.Attr         { return slog.String(KeyMode, m) }
func Entry(e string) slog.Attr        { return slog.String(KeyEntry, e) }
func Artifact(p string) slog.Attr     { return slog.String(KeyArtifact, p) }
func Tag(t string) slog.Attr          { return slog.String(KeyTag, t) }
func Revision(r string) slog.Attr     { return slog.String(KeyRevision, r) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Schedule(s string) slog.Attr     { return slog.String(KeySchedule, s) }
func Tool(t string) slog.Attr         { return slog.String(KeyTool, t) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
