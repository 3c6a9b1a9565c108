package pdftext

// PagesForChunk maps a chunk's [charStart, charEnd) rune span to the page
// range it overlaps. Returns (nil, nil) when no page overlaps the span, which
// the gapless page map should make impossible but the contract tolerates.
//
// The scan is linear in the number of pages; CAO documents stay well under a
// few hundred pages, so a binary search over span starts has not been needed.
func PagesForChunk(spans []PageSpan, charStart, charEnd int) (pageStart, pageEnd *int) {
	for i := range spans {
		s := spans[i]
		if s.End <= charStart {
			continue
		}
		if s.Start >= charEnd {
			break
		}
		if pageStart == nil {
			p := s.Page
			pageStart = &p
		}
		p := s.Page
		pageEnd = &p
	}
	return pageStart, pageEnd
}
