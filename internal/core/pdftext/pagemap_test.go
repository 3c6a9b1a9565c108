package pdftext

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func synthMap() []PageSpan {
	return []PageSpan{
		{Page: 1, Start: 0, End: 10},
		{Page: 2, Start: 10, End: 25},
		{Page: 3, Start: 25, End: 30},
	}
}

func TestPagesForChunkSpanningTwoPages(t *testing.T) {
	pStart, pEnd := PagesForChunk(synthMap(), 5, 20)
	require.NotNil(t, pStart)
	require.NotNil(t, pEnd)
	assert.Equal(t, 1, *pStart)
	assert.Equal(t, 2, *pEnd)
}

func TestPagesForChunkWithinOnePage(t *testing.T) {
	pStart, pEnd := PagesForChunk(synthMap(), 26, 28)
	require.NotNil(t, pStart)
	require.NotNil(t, pEnd)
	assert.Equal(t, 3, *pStart)
	assert.Equal(t, 3, *pEnd)
}

func TestPagesForChunkBeyondAllPages(t *testing.T) {
	pStart, pEnd := PagesForChunk(synthMap(), 30, 40)
	assert.Nil(t, pStart)
	assert.Nil(t, pEnd)
}

func TestPagesForChunkSkipsZeroWidthPages(t *testing.T) {
	spans := []PageSpan{
		{Page: 1, Start: 0, End: 5},
		{Page: 2, Start: 5, End: 5}, // blank page
		{Page: 3, Start: 5, End: 12},
	}
	pStart, pEnd := PagesForChunk(spans, 3, 8)
	require.NotNil(t, pStart)
	require.NotNil(t, pEnd)
	assert.Equal(t, 1, *pStart)
	assert.Equal(t, 3, *pEnd)
}

func TestBuildPageMapCoversFlatTextExactly(t *testing.T) {
	pages := []string{"eerste pagina\n", "", "tweede pagina, wat langer\n", "slot"}

	flat, spans := BuildPageMap(pages)
	require.Len(t, spans, len(pages))

	cursor := 0
	for i, s := range spans {
		assert.Equal(t, i+1, s.Page)
		assert.Equal(t, cursor, s.Start, "page %d must start where the previous ended", s.Page)
		assert.LessOrEqual(t, s.Start, s.End)
		cursor = s.End
	}
	assert.Equal(t, utf8.RuneCountInString(flat), cursor)
}

func TestBuildPageMapReplacesNULWithoutShiftingOffsets(t *testing.T) {
	flat, spans := BuildPageMap([]string{"ab\x00cd", "ef"})

	assert.Equal(t, "ab cd", flat[:5])
	assert.Equal(t, PageSpan{Page: 1, Start: 0, End: 5}, spans[0])
	assert.Equal(t, PageSpan{Page: 2, Start: 5, End: 7}, spans[1])
}

func TestBuildPageMapEmptyDocument(t *testing.T) {
	flat, spans := BuildPageMap(nil)
	assert.Empty(t, flat)
	assert.Empty(t, spans)
}
