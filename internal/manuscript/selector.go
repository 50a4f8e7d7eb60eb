package manuscript

import (
	"regexp"

	"git.home.luguber.info/inful/bookforge/internal/build"
)

// partialDirective matches an active \includeonly line, the only structural
// element the selector inspects or removes. Commented-out directives do not
// match. The trailing newline is consumed so the surrounding lines join
// without leaving a blank.
var partialDirective = regexp.MustCompile(`(?m)^[ \t]*\\includeonly\{[^}]*\}[ \t]*\r?\n?`)

// HasPartialDirective reports whether the document carries an active
// partial-build directive.
func HasPartialDirective(doc EntryDocument) bool {
	return partialDirective.MatchString(doc.Content)
}

// SelectEntry produces the document actually handed to the engine for the
// given mode. Check mode returns the document unchanged, keeping the partial
// directive active for fast developer iteration. Release mode removes every
// directive line so the full manuscript compiles; when no directive exists
// the document passes through untouched. The transform is pure and total.
func SelectEntry(mode build.Mode, raw EntryDocument) EntryDocument {
	if mode != build.ModeRelease {
		return raw
	}
	return EntryDocument{
		Name:    raw.Name,
		Content: partialDirective.ReplaceAllString(raw.Content, ""),
	}
}
