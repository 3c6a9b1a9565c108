package pdftext

import (
	"fmt"
	"strings"

	"github.com/caoscope/caoscope/internal/core"
)

// ChunkSpan is one window of the trimmed flat text. Start and End are the
// pre-trim window boundaries in runes; Content is the window's text with
// leading and trailing whitespace removed.
type ChunkSpan struct {
	Start   int
	End     int
	Content string
}

// ChunkText trims the full text, then partitions it into consecutive windows
// of chunkChars runes (the final window may be shorter). Windows that are
// empty after trimming are skipped. The function is pure and deterministic:
// the same (text, chunkChars) always yields identical spans, which is the
// property chunk-level idempotency rests on.
//
// Offsets are relative to the trimmed text. The page map is built from the
// untrimmed concatenation, so leading whitespace in the extracted text shifts
// chunk offsets against it; see the chunker tests.
func ChunkText(text string, chunkChars int) ([]ChunkSpan, error) {
	if chunkChars <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", core.ErrInvalidConfiguration, chunkChars)
	}

	runes := []rune(strings.TrimSpace(text))
	var out []ChunkSpan
	for start := 0; start < len(runes); start += chunkChars {
		end := start + chunkChars
		if end > len(runes) {
			end = len(runes)
		}
		content := strings.TrimSpace(string(runes[start:end]))
		if content == "" {
			continue
		}
		out = append(out, ChunkSpan{Start: start, End: end, Content: content})
	}
	return out, nil
}
