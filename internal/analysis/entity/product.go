package entity

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/zhouzirui/aiva/backend/internal/analysis/text"
	"github.com/zhouzirui/aiva/backend/internal/model/catalog"
	"github.com/zhouzirui/aiva/backend/internal/model/session"
)

// DefaultSimilarity is the minimum similarity ratio for a fuzzy name match.
const DefaultSimilarity = 0.6

// ErrNoProduct is returned when no strategy resolves a product name.
var ErrNoProduct = errors.New("no product matches the name")

// MatchSource records which strategy resolved a product.
type MatchSource string

const (
	SourceExact   MatchSource = "exact"
	SourceFuzzy   MatchSource = "fuzzy"
	SourceCatalog MatchSource = "catalog"
)

// ProductMatch is a resolved product reference.
type ProductMatch struct {
	ID     string
	Name   string
	Source MatchSource
	Score  float64
}

// ProductMatcher resolves spoken product names to catalog ids.
type ProductMatcher struct {
	catalog   catalog.Catalog
	threshold float64
}

// NewProductMatcher returns a matcher backed by c. A threshold outside (0,1]
// falls back to DefaultSimilarity.
func NewProductMatcher(c catalog.Catalog, threshold float64) *ProductMatcher {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultSimilarity
	}
	return &ProductMatcher{catalog: c, threshold: threshold}
}

// Match tries an exact match against the visible products, then the best
// fuzzy match above the threshold, then a single-result catalog search.
func (m *ProductMatcher) Match(ctx context.Context, name string, visible []session.VisibleProduct) (ProductMatch, error) {
	query := text.Normalize(name)
	if query == "" {
		return ProductMatch{}, ErrNoProduct
	}

	for _, v := range visible {
		if text.Normalize(v.Name) == query {
			return ProductMatch{ID: v.ID, Name: v.Name, Source: SourceExact, Score: 1}, nil
		}
	}

	best := -1
	bestScore := 0.0
	for i, v := range visible {
		score := Similarity(query, text.Normalize(v.Name))
		if score >= m.threshold && score > bestScore {
			best, bestScore = i, score
		}
	}
	if best >= 0 {
		return ProductMatch{ID: visible[best].ID, Name: visible[best].Name, Source: SourceFuzzy, Score: bestScore}, nil
	}

	if m.catalog == nil {
		return ProductMatch{}, ErrNoProduct
	}
	found, err := m.catalog.Search(ctx, name, nil, 1)
	if err != nil {
		return ProductMatch{}, fmt.Errorf("catalog search %q: %w", name, err)
	}
	if len(found) == 0 {
		return ProductMatch{}, ErrNoProduct
	}
	return ProductMatch{ID: found[0].ID, Name: found[0].Name, Source: SourceCatalog}, nil
}

// Similarity returns 1 - editDistance/maxLen over runes, in [0,1].
func Similarity(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}
