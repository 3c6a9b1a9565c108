package pdftext

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/caoscope/caoscope/internal/core"
)

// PageSpan records which half-open rune range of the flat text one page
// contributed. Spans are contiguous and increasing: page n+1 starts exactly
// where page n ends, so together they partition [0, len(flatText)).
type PageSpan struct {
	Page  int // 1-based page number
	Start int
	End   int
}

// Extractor is the PDF extraction backend.
type Extractor struct{}

func NewExtractor() Extractor { return Extractor{} }

func (Extractor) ExtractTextWithPageMap(data []byte) (string, []PageSpan, error) {
	return ExtractTextWithPageMap(data)
}

// ExtractTextWithPageMap extracts plain text from a PDF page by page and
// returns the concatenated text together with the page map. The map is what
// lets a chunk's character span be resolved back to the page range it came
// from. A document with zero pages yields empty text and an empty map.
func ExtractTextWithPageMap(data []byte) (string, []PageSpan, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", nil, fmt.Errorf("%w: open pdf: %v", core.ErrExtraction, err)
	}

	numPages := reader.NumPage()
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			// Keep the slot so page numbering stays aligned; the span is
			// zero-width and the resolver skips it.
			pages = append(pages, "")
			continue
		}
		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			return "", nil, fmt.Errorf("%w: page %d: %v", core.ErrExtraction, i, err)
		}
		pages = append(pages, text)
	}

	flat, spans := BuildPageMap(pages)
	return flat, spans, nil
}

// BuildPageMap concatenates per-page texts and records each page's rune
// range. NUL bytes are replaced with spaces afterwards; the one-for-one
// replacement keeps every offset valid.
func BuildPageMap(pages []string) (string, []PageSpan) {
	var b strings.Builder
	spans := make([]PageSpan, 0, len(pages))
	cursor := 0
	for i, text := range pages {
		b.WriteString(text)
		start := cursor
		cursor += utf8.RuneCountInString(text)
		spans = append(spans, PageSpan{Page: i + 1, Start: start, End: cursor})
	}
	return strings.ReplaceAll(b.String(), "\x00", " "), spans
}
