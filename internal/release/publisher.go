// Package release publishes build artifacts to a fixed release tag on a
// Forgejo (Gitea-compatible) forge. The tag holds at most one artifact at a
// time: each publish replaces the previous asset rather than appending to a
// history.
package release

import "context"

// Artifact is a built binary object ready for publication.
type Artifact struct {
	Path     string // local file path of the artifact
	Name     string // asset name under the release tag, e.g. main.pdf
	Revision string // manuscript revision the artifact was built from
	Notes    string // optional release body text
}

// Publisher uploads an artifact under a fixed release tag, replacing any
// previously published asset of the same name. Implementations must not
// retry; retry policy belongs to the hosting collaborator.
type Publisher interface {
	Publish(ctx context.Context, artifact Artifact) error
}
