package pdftext

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caoscope/caoscope/internal/core"
)

func TestChunkTextWindowBoundaries(t *testing.T) {
	text := "aaaabbbbcc"

	chunks, err := ChunkText(text, 4)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, ChunkSpan{Start: 0, End: 4, Content: "aaaa"}, chunks[0])
	assert.Equal(t, ChunkSpan{Start: 4, End: 8, Content: "bbbb"}, chunks[1])
	// Final window is shorter than the chunk size.
	assert.Equal(t, ChunkSpan{Start: 8, End: 10, Content: "cc"}, chunks[2])
}

func TestChunkTextIsDeterministic(t *testing.T) {
	text := strings.Repeat("De werkgever betaalt het loon uiterlijk op de laatste dag. ", 50)

	first, err := ChunkText(text, 137)
	require.NoError(t, err)
	second, err := ChunkText(text, 137)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestChunkTextSkipsWhitespaceOnlyWindows(t *testing.T) {
	// The middle window is all spaces; it must not be emitted, and the third
	// window keeps its original offsets.
	text := "aaaa    bbbb"

	chunks, err := ChunkText(text, 4)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, ChunkSpan{Start: 0, End: 4, Content: "aaaa"}, chunks[0])
	assert.Equal(t, ChunkSpan{Start: 8, End: 12, Content: "bbbb"}, chunks[1])
}

func TestChunkTextTrimsContentButKeepsWindowOffsets(t *testing.T) {
	text := "ab  cd"

	chunks, err := ChunkText(text, 3)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	// Stored content is trimmed, offsets still describe the full window.
	assert.Equal(t, ChunkSpan{Start: 0, End: 3, Content: "ab"}, chunks[0])
	assert.Equal(t, ChunkSpan{Start: 3, End: 6, Content: "cd"}, chunks[1])
}

func TestChunkTextCountsRunesNotBytes(t *testing.T) {
	text := "ééééàààà"

	chunks, err := ChunkText(text, 4)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "éééé", chunks[0].Content)
	assert.Equal(t, ChunkSpan{Start: 4, End: 8, Content: "àààà"}, chunks[1])
}

func TestChunkTextEmptyAndBlankInput(t *testing.T) {
	chunks, err := ChunkText("", 100)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = ChunkText("   \n\t  ", 100)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkTextRejectsNonPositiveSize(t *testing.T) {
	_, err := ChunkText("some text", 0)
	require.ErrorIs(t, err, core.ErrInvalidConfiguration)

	_, err = ChunkText("some text", -5)
	require.ErrorIs(t, err, core.ErrInvalidConfiguration)
}

// The chunker trims the whole text before windowing while the page map is
// built from the untrimmed concatenation. For documents whose extraction
// starts with whitespace, all chunk offsets are therefore shifted left
// against the page map. This test pins the skew down instead of hiding it.
func TestChunkOffsetsShiftAgainstPageMapWhenTextHasLeadingWhitespace(t *testing.T) {
	flat, spans := BuildPageMap([]string{"   abc", "def"})
	require.Equal(t, "   abcdef", flat)

	chunks, err := ChunkText(flat, 6)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "abcdef", chunks[0].Content)

	// The chunk covers text from both pages, but its trimmed-relative span
	// [0,6) only overlaps page 1 in the untrimmed map.
	pStart, pEnd := PagesForChunk(spans, chunks[0].Start, chunks[0].End)
	require.NotNil(t, pStart)
	require.NotNil(t, pEnd)
	assert.Equal(t, 1, *pStart)
	assert.Equal(t, 1, *pEnd)
}
