package snippet_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/civiclens/article-search/internal/snippet"
)

func TestExtractHyphenAndNewlineNormalization(t *testing.T) {
	content := "Re-Zoning approved\nfor Lot 4"
	got, ok := snippet.Extract(content, "re zoning")
	require.True(t, ok)
	// snippet comes from the original text, hyphen and newline intact
	require.Contains(t, got, "Re-Zoning")
	require.Contains(t, got, "\n")
	require.LessOrEqual(t, len(got), len(content))
}

func TestExtractNoMatchExcluded(t *testing.T) {
	_, ok := snippet.Extract("Budget hearing minutes", "zoning")
	require.False(t, ok)

	// earlier behavior anchored a window at offset 0 here; it must not return
	got, ok := snippet.Extract("completely unrelated text", "zoning")
	require.False(t, ok)
	require.Empty(t, got)
}

func TestExtractWindowBounds(t *testing.T) {
	pad := strings.Repeat("x", 500)
	content := pad + " zoning " + pad
	got, ok := snippet.Extract(content, "zoning")
	require.True(t, ok)
	require.Contains(t, got, "zoning")
	require.LessOrEqual(t, len(got), 201+len("zoning"))
}

func TestExtractShortContentClamped(t *testing.T) {
	got, ok := snippet.Extract("zoning", "zoning")
	require.True(t, ok)
	require.Equal(t, "zoning", got)

	got, ok = snippet.Extract("a zoning b", "zoning")
	require.True(t, ok)
	require.Equal(t, "a zoning b", got)
}

func TestExtractEmptyInputs(t *testing.T) {
	_, ok := snippet.Extract("", "zoning")
	require.False(t, ok)

	_, ok = snippet.Extract("some content", "")
	require.False(t, ok)
}

func TestExtractCaseInsensitive(t *testing.T) {
	got, ok := snippet.Extract("The ZONING board met.", "zoning")
	require.True(t, ok)
	require.Contains(t, got, "ZONING")
}

func TestExtractMultibyteContentStaysValid(t *testing.T) {
	content := strings.Repeat("é", 120) + " zoning " + strings.Repeat("ü", 120)
	got, ok := snippet.Extract(content, "zoning")
	require.True(t, ok)
	require.True(t, strings.Contains(got, "zoning"))
	require.True(t, len(got) > 0)
	// slicing must not split a rune
	require.True(t, strings.ToValidUTF8(got, "") == got)
}
