package entity

import (
	"unicode/utf8"

	"github.com/zhouzirui/aiva/backend/internal/analysis/text"
	"github.com/zhouzirui/aiva/backend/internal/model/catalog"
)

type synonym struct {
	phrase   string
	category string
}

// categoryTable is ordered; on equal phrase length the earlier entry wins.
var categoryTable = normalizeTable([]synonym{
	{"maglia", catalog.CategoryTShirt},
	{"maglie", catalog.CategoryTShirt},
	{"maglietta", catalog.CategoryTShirt},
	{"magliette", catalog.CategoryTShirt},
	{"polo", catalog.CategoryTShirt},
	{"t-shirt", catalog.CategoryTShirt},
	{"tshirt", catalog.CategoryTShirt},
	{"t-shirts", catalog.CategoryTShirt},
	{"felpa con cappuccio", catalog.CategoryFelpa},
	{"hoodie", catalog.CategoryFelpa},
	{"felpa", catalog.CategoryFelpa},
	{"felpe", catalog.CategoryFelpa},
	{"maglione", catalog.CategoryMaglione},
	{"maglioni", catalog.CategoryMaglione},
	{"pullover", catalog.CategoryMaglione},
	{"cardigan", catalog.CategoryMaglione},
	{"dolcevita", catalog.CategoryMaglione},
	{"giacca", catalog.CategoryGiacca},
	{"giacche", catalog.CategoryGiacca},
	{"giubbotto", catalog.CategoryGiacca},
	{"giubbotti", catalog.CategoryGiacca},
	{"giubbino", catalog.CategoryGiacca},
	{"giacchetto", catalog.CategoryGiacca},
	{"bomber", catalog.CategoryGiacca},
	{"piumino", catalog.CategoryGiacca},
	{"piumini", catalog.CategoryGiacca},
	{"cappotto", catalog.CategoryGiacca},
	{"cappotti", catalog.CategoryGiacca},
	{"blazer", catalog.CategoryGiacca},
	{"jeans", catalog.CategoryPantaloni},
	{"denim", catalog.CategoryPantaloni},
	{"chino", catalog.CategoryPantaloni},
	{"pantalone", catalog.CategoryPantaloni},
	{"pantaloni", catalog.CategoryPantaloni},
	{"bermuda", catalog.CategoryShorts},
	{"pantaloncini", catalog.CategoryShorts},
	{"shorts", catalog.CategoryShorts},
	{"gonna", catalog.CategoryGonna},
	{"gonne", catalog.CategoryGonna},
	{"gonnellina", catalog.CategoryGonna},
	{"minigonna", catalog.CategoryGonna},
	{"vestito", catalog.CategoryVestito},
	{"vestiti", catalog.CategoryVestito},
	{"abito", catalog.CategoryVestito},
	{"abiti", catalog.CategoryVestito},
	{"dress", catalog.CategoryVestito},
	{"camicia", catalog.CategoryCamicia},
	{"camicie", catalog.CategoryCamicia},
	{"camicetta", catalog.CategoryCamicia},
	{"camicette", catalog.CategoryCamicia},
	{"blusa", catalog.CategoryCamicia},
	{"scarpe da ginnastica", catalog.CategoryScarpe},
	{"scarpe", catalog.CategoryScarpe},
	{"scarpa", catalog.CategoryScarpe},
	{"sneakers", catalog.CategoryScarpe},
	{"stivali", catalog.CategoryScarpe},
	{"sandali", catalog.CategoryScarpe},
	{"anfibi", catalog.CategoryScarpe},
	{"mocassini", catalog.CategoryScarpe},
	{"décolleté", catalog.CategoryScarpe},
	{"accessori", catalog.CategoryAccessori},
	{"cintura", catalog.CategoryAccessori},
	{"cinture", catalog.CategoryAccessori},
	{"cappello", catalog.CategoryAccessori},
	{"sciarpa", catalog.CategoryAccessori},
	{"borsa", catalog.CategoryAccessori},
	{"borse", catalog.CategoryAccessori},
	{"zaino", catalog.CategoryAccessori},
})

func normalizeTable(in []synonym) []synonym {
	out := make([]synonym, len(in))
	for i, s := range in {
		out[i] = synonym{phrase: text.Normalize(s.phrase), category: s.category}
	}
	return out
}

// CategoryMatch is the outcome of a category lookup.
type CategoryMatch struct {
	Category string
	Phrase   string
}

// ResolveCategory finds the canonical category named in text. When several
// table phrases occur, the longest one wins.
func ResolveCategory(raw string) (CategoryMatch, bool) {
	norm := text.Normalize(raw)
	if norm == "" {
		return CategoryMatch{}, false
	}

	var best CategoryMatch
	bestLen := 0
	for _, s := range categoryTable {
		if !text.ContainsPhrase(norm, s.phrase) {
			continue
		}
		if n := utf8.RuneCountInString(s.phrase); n > bestLen {
			bestLen = n
			best = CategoryMatch{Category: s.category, Phrase: s.phrase}
		}
	}
	return best, bestLen > 0
}
