package build

import "time"

// Status is the terminal state of a single build invocation.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Result captures the outcome of one engine invocation. It is produced
// once per run and never mutated afterwards.
type Result struct {
	Status       Status
	ArtifactPath string // set only on success
	Log          string // engine stdout+stderr, preserved verbatim for diagnosis
	Mode         Mode
	Revision     string // manuscript HEAD at build time, empty when unknown
	Duration     time.Duration
}

// Succeeded reports whether the build produced an artifact.
func (r *Result) Succeeded() bool { return r != nil && r.Status == StatusSuccess }
