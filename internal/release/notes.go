package release

import (
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// LoadNotes reads the release-notes markdown file and extracts the most
// recent section: the first heading and everything up to the next heading of
// the same level. A file without headings is used whole. A missing or empty
// file yields an empty body, which is not an error — the release simply
// carries no notes.
func LoadNotes(path string) string {
	if path == "" {
		return ""
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return extractLatestSection(source)
}

func extractLatestSection(source []byte) string {
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	var first *ast.Heading
	var stop int = len(source)

	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		heading, ok := node.(*ast.Heading)
		if !ok {
			continue
		}
		if first == nil {
			first = heading
			continue
		}
		if heading.Level <= first.Level {
			if lines := heading.Lines(); lines.Len() > 0 {
				// Back up past the heading marker to the start of its line.
				stop = lineStart(source, lines.At(0).Start)
			}
			break
		}
	}

	if first == nil {
		return strings.TrimSpace(string(source))
	}

	lines := first.Lines()
	if lines.Len() == 0 {
		return strings.TrimSpace(string(source))
	}
	start := lineStart(source, lines.At(0).Start)
	return strings.TrimSpace(string(source[start:stop]))
}

func lineStart(source []byte, offset int) int {
	for offset > 0 && source[offset-1] != '\n' {
		offset--
	}
	return offset
}
