package release

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractLatestSection(t *testing.T) {
	source := `# 2026-08-29

- fixed listing overflow in chapter 4
- new appendix on error handling

# 2026-07-12

- initial public draft
`
	got := extractLatestSection([]byte(source))
	assert.Equal(t, "# 2026-08-29\n\n- fixed listing overflow in chapter 4\n- new appendix on error handling", got)
}

func TestExtractLatestSectionKeepsSubheadings(t *testing.T) {
	source := `# latest

## details

text

# older
`
	got := extractLatestSection([]byte(source))
	assert.Contains(t, got, "## details")
	assert.NotContains(t, got, "older")
}

func TestExtractLatestSectionNoHeadings(t *testing.T) {
	got := extractLatestSection([]byte("just some notes\n"))
	assert.Equal(t, "just some notes", got)
}

func TestLoadNotes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "NOTES.md")
	require.NoError(t, os.WriteFile(path, []byte("# v1\n\nbody\n"), 0o644))

	assert.Equal(t, "# v1\n\nbody", LoadNotes(path))
	assert.Empty(t, LoadNotes(filepath.Join(dir, "absent.md")))
	assert.Empty(t, LoadNotes(""))
}
