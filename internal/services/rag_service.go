package services

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/caoscope/caoscope/internal/core"
	"github.com/caoscope/caoscope/internal/models"
)

// DefaultSystemRules is the grounded-analysis contract handed to the chat
// model: every claim must cite a numbered source block, and missing evidence
// has to be named instead of papered over.
const DefaultSystemRules = `Je bent een analyst die uitsluitend conclusies trekt uit de aangeleverde bronnen.
Regels:
- Elke claim krijgt één of meer bronverwijzingen tussen haakjes, bijv. [S1] of [S2][S4].
- Als een claim niet direct uit bronnen volgt: schrijf die claim niet.
- Vat niet algemeen samen; verwijs naar concrete passages.
- Bij onduidelijkheid of ontbreken van bewijs: benoem beperking.
Output:
- Korte conclusie
- Genummerde claims (met citations)
- Beperkingen
`

// MaxSourcesChars caps the source context handed to the model.
const MaxSourcesChars = 12000

var citationPattern = regexp.MustCompile(`\[S(\d+)\]`)

// RagAnswer is a generated analysis plus the evidence it was grounded on.
type RagAnswer struct {
	Answer         string             `json:"answer"`
	Sources        []models.SearchHit `json:"sources"`
	CitationsValid bool               `json:"citations_valid"`
}

// RagService retrieves evidence chunks for a question and has the chat model
// write a cited analysis over them.
type RagService struct {
	search *SearchService
	llm    core.LLMProvider
}

func NewRagService(search *SearchService, llm core.LLMProvider) *RagService {
	return &RagService{search: search, llm: llm}
}

// Answer runs retrieval and generation end to end. Zero hits short-circuit
// with an empty answer rather than letting the model invent sources.
func (s *RagService) Answer(ctx context.Context, question, systemRules string, k int, caoID *string) (*RagAnswer, error) {
	if strings.TrimSpace(systemRules) == "" {
		systemRules = DefaultSystemRules
	}

	hits, err := s.search.Search(ctx, question, k, caoID)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return &RagAnswer{Sources: []models.SearchHit{}}, nil
	}

	sources := BuildSourcesContext(hits, MaxSourcesChars)
	prompt := fmt.Sprintf(
		"Vraag:\n%s\n\nBronnen:\n%s\n\n"+
			"Schrijf een analyse met claims die elk bronverwijzingen bevatten als [S1], [S2], etc.\n"+
			"Geen claims zonder bronverwijzing. Als bronnen onvoldoende zijn: zeg dat expliciet.",
		strings.TrimSpace(question), sources)

	answer, err := s.llm.Generate(ctx, systemRules, prompt)
	if err != nil {
		return nil, err
	}

	return &RagAnswer{
		Answer:         answer,
		Sources:        hits,
		CitationsValid: CitationCheck(answer, len(hits)),
	}, nil
}

// BuildSourcesContext renders hits as labelled blocks ("[S1] ...") the answer
// can cite by number. Blocks append whole until the next one would push the
// total past maxChars.
func BuildSourcesContext(hits []models.SearchHit, maxChars int) string {
	var parts []string
	used := 0
	for i, hit := range hits {
		header := fmt.Sprintf("[S%d] cao_id=%s | chunk_id=%s | chunk_index=%d | pages=%s",
			i+1, hit.DocumentID, hit.ChunkID, hit.Index, formatPages(hit.PageStart, hit.PageEnd))
		block := header + "\n" + strings.TrimSpace(hit.Content) + "\n"
		if used+len([]rune(block)) > maxChars {
			break
		}
		parts = append(parts, block)
		used += len([]rune(block))
	}
	return strings.Join(parts, "\n")
}

// CitationCheck reports whether the answer cites at least one source and
// every [Sn] it uses stays within 1..nSources.
func CitationCheck(text string, nSources int) bool {
	matches := citationPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return false
	}
	for _, m := range matches {
		idx, err := strconv.Atoi(m[1])
		if err != nil || idx < 1 || idx > nSources {
			return false
		}
	}
	return true
}

func formatPages(start, end *int) string {
	if start == nil || end == nil {
		return "?-?"
	}
	return fmt.Sprintf("%d-%d", *start, *end)
}
