package entity

import (
	"strings"

	"github.com/zhouzirui/aiva/backend/internal/analysis/text"
)

// colorForms maps every inflected colour word to its masculine singular form.
var colorForms = map[string]string{
	"nero": "nero", "nera": "nero", "neri": "nero", "nere": "nero",
	"bianco": "bianco", "bianca": "bianco", "bianchi": "bianco", "bianche": "bianco",
	"rosso": "rosso", "rossa": "rosso", "rossi": "rosso", "rosse": "rosso",
	"grigio": "grigio", "grigia": "grigio", "grigi": "grigio", "grigie": "grigio",
	"giallo": "giallo", "gialla": "giallo", "gialli": "giallo", "gialle": "giallo",
	"azzurro": "azzurro", "azzurra": "azzurro", "azzurri": "azzurro", "azzurre": "azzurro",
	"verde": "verde", "verdi": "verde",
	"blu": "blu",
	"navy": "navy",
	"beige": "beige",
	"marrone": "marrone", "marroni": "marrone",
	"rosa": "rosa",
	"viola": "viola",
	"arancione": "arancione", "arancioni": "arancione",
	"crema": "crema",
	"kaki": "kaki", "khaki": "kaki",
	"cuoio": "cuoio",
	"nude": "nude",
}

// CanonicalColor maps an inflected colour word ("nere") to its canonical form ("nero").
func CanonicalColor(word string) (string, bool) {
	c, ok := colorForms[text.Normalize(word)]
	return c, ok
}

// FindColor returns the first colour mentioned in text.
func FindColor(raw string) (string, bool) {
	for _, tok := range text.Tokens(raw) {
		if c, ok := colorForms[tok]; ok {
			return c, true
		}
	}
	return "", false
}

// colorKey canonicalizes every colour word of a multi-word colour ("Grigia melange" -> "grigio melange").
func colorKey(phrase string) string {
	tokens := text.Tokens(phrase)
	for i, tok := range tokens {
		if c, ok := colorForms[tok]; ok {
			tokens[i] = c
		}
	}
	return strings.Join(tokens, " ")
}

// FindGender detects "da uomo" / "per donna" phrasing.
func FindGender(raw string) (string, bool) {
	norm := text.Normalize(raw)
	switch {
	case text.ContainsAny(norm, "da uomo", "per uomo", "uomini"):
		return "uomo", true
	case text.ContainsAny(norm, "da donna", "per donna", "donne"):
		return "donna", true
	}
	return "", false
}

var saleWords = []string{
	"offerta", "offerte", "saldi", "saldo", "sconto", "sconti",
	"scontato", "scontata", "scontati", "scontate", "promozione", "promozioni", "promo",
}

// HasSaleKeyword reports whether text asks for discounted items.
func HasSaleKeyword(raw string) bool {
	return text.ContainsAny(text.Normalize(raw), saleWords...)
}
