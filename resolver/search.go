package resolver

import (
	"context"
	"strings"

	"github.com/helpcomp/merchant-category-resolver/search"
	"github.com/rs/zerolog/log"
)

// Searcher is the boundary to the external web-search collaborator.
type Searcher interface {
	Search(ctx context.Context, query string) ([]search.Result, error)
}

// searchEnricher scores web-search results for a merchant name against the
// taxonomy keyword table.
type searchEnricher struct {
	client   Searcher
	taxonomy *Taxonomy
}

// resolve returns the best-matching category, or nil on any soft failure:
// search error, no results, or no keyword matched.
func (e *searchEnricher) resolve(ctx context.Context, name string) *Resolution {
	results, err := e.client.Search(ctx, name)
	if err != nil {
		log.Error().Err(err).Str("merchant", name).Msg("Merchant search failed")
		return nil
	}
	if len(results) == 0 {
		return nil
	}

	var sb strings.Builder
	for _, r := range results {
		sb.WriteString(r.Title)
		sb.WriteString(" ")
		sb.WriteString(r.Snippet)
		sb.WriteString(" ")
		sb.WriteString(r.Link)
		sb.WriteString(" ")
		sb.WriteString(r.DisplayLink)
		sb.WriteString(" ")
	}

	cat, score, ok := e.taxonomy.Score(strings.ToLower(sb.String()))
	if !ok {
		log.Debug().Str("merchant", name).Msg("Search results matched no taxonomy keywords")
		return nil
	}
	return &Resolution{
		CategoryName: cat.Name,
		CategoryID:   cat.ID,
		Confidence:   score,
		Source:       SourceSearch,
	}
}
