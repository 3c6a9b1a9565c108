package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caoscope/caoscope/internal/models"
)

func intPtr(v int) *int { return &v }

func hit(i int, content string) models.SearchHit {
	return models.SearchHit{
		ChunkID:    fmt.Sprintf("metalektro::%d", i),
		DocumentID: "metalektro",
		Index:      i,
		Content:    content,
		PageStart:  intPtr(3),
		PageEnd:    intPtr(4),
		Similarity: 0.9,
	}
}

func TestBuildSourcesContextLabelsBlocksInOrder(t *testing.T) {
	hits := []models.SearchHit{
		hit(0, "De werkweek bedraagt 38 uur."),
		hit(7, "  Vakantiedagen worden opgebouwd per maand.  "),
	}

	out := BuildSourcesContext(hits, MaxSourcesChars)

	assert.Contains(t, out, "[S1] cao_id=metalektro | chunk_id=metalektro::0 | chunk_index=0 | pages=3-4")
	assert.Contains(t, out, "[S2] cao_id=metalektro | chunk_id=metalektro::7 | chunk_index=7 | pages=3-4")
	assert.Contains(t, out, "Vakantiedagen worden opgebouwd per maand.\n")
	assert.NotContains(t, out, "  Vakantiedagen")
	assert.Less(t, strings.Index(out, "[S1]"), strings.Index(out, "[S2]"))
}

func TestBuildSourcesContextRendersUnknownPages(t *testing.T) {
	h := hit(0, "tekst")
	h.PageStart, h.PageEnd = nil, nil
	out := BuildSourcesContext([]models.SearchHit{h}, MaxSourcesChars)
	assert.Contains(t, out, "pages=?-?")
}

func TestBuildSourcesContextStopsAtCharBudget(t *testing.T) {
	hits := []models.SearchHit{
		hit(0, strings.Repeat("a", 100)),
		hit(1, strings.Repeat("b", 100)),
		hit(2, strings.Repeat("c", 100)),
	}

	// Budget fits the first two blocks but not the third.
	out := BuildSourcesContext(hits, 350)
	assert.Contains(t, out, "[S1]")
	assert.Contains(t, out, "[S2]")
	assert.NotContains(t, out, "[S3]")

	// Blocks are kept whole; a budget below the first block yields nothing.
	assert.Empty(t, BuildSourcesContext(hits, 10))
}

func TestCitationCheck(t *testing.T) {
	cases := []struct {
		text     string
		nSources int
		want     bool
	}{
		{"De werkweek is 38 uur [S1].", 3, true},
		{"Claim A [S1][S3]. Claim B [S2].", 3, true},
		{"Een analyse zonder enige verwijzing.", 3, false},
		{"Verwijst buiten bereik [S4].", 3, false},
		{"Nul is geen bron [S0].", 3, false},
		{"", 3, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CitationCheck(tc.text, tc.nSources), "text %q", tc.text)
	}
}

type stubLLM struct {
	answer  string
	system  string
	prompt  string
	callErr error
}

func (s *stubLLM) Generate(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	s.system = systemPrompt
	s.prompt = userPrompt
	if s.callErr != nil {
		return "", s.callErr
	}
	return s.answer, nil
}

func TestRagAnswerGroundsPromptInRetrievedSources(t *testing.T) {
	db := &stubDB{hits: []models.SearchHit{
		hit(0, "De werkweek bedraagt 38 uur."),
		hit(1, "Overwerk wordt vergoed tegen 150%."),
	}}
	search := NewSearchService(db, &stubEmbedder{})
	llm := &stubLLM{answer: "Conclusie: de werkweek is 38 uur [S1] en overwerk kent een toeslag [S2]."}
	svc := NewRagService(search, llm)

	out, err := svc.Answer(context.Background(), "Hoeveel uur is de werkweek?", "", 5, nil)
	require.NoError(t, err)

	assert.True(t, out.CitationsValid)
	assert.Len(t, out.Sources, 2)
	assert.Equal(t, DefaultSystemRules, llm.system)
	assert.Contains(t, llm.prompt, "Vraag:\nHoeveel uur is de werkweek?")
	assert.Contains(t, llm.prompt, "[S1] cao_id=metalektro")
	assert.Contains(t, llm.prompt, "Geen claims zonder bronverwijzing.")
}

func TestRagAnswerFlagsUncitedOutput(t *testing.T) {
	db := &stubDB{hits: []models.SearchHit{hit(0, "De werkweek bedraagt 38 uur.")}}
	search := NewSearchService(db, &stubEmbedder{})
	llm := &stubLLM{answer: "Een samenvatting zonder verwijzingen."}
	svc := NewRagService(search, llm)

	out, err := svc.Answer(context.Background(), "Hoeveel uur is de werkweek?", "", 5, nil)
	require.NoError(t, err)
	assert.False(t, out.CitationsValid)
}

func TestRagAnswerWithoutSourcesSkipsGeneration(t *testing.T) {
	db := &stubDB{}
	search := NewSearchService(db, &stubEmbedder{})
	llm := &stubLLM{answer: "should not be called"}
	svc := NewRagService(search, llm)

	out, err := svc.Answer(context.Background(), "Onbekend onderwerp?", "", 5, nil)
	require.NoError(t, err)
	assert.Empty(t, out.Answer)
	assert.Empty(t, out.Sources)
	assert.Empty(t, llm.prompt, "the model must not run without evidence")
}
