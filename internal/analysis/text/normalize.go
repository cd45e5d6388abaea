package text

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MinQuantity and MaxQuantity bound every quantity the assistant understands.
const (
	MinQuantity = 1
	MaxQuantity = 10
)

var numberWords = map[string]int{
	"un":      1,
	"una":     1,
	"uno":     1,
	"due":     2,
	"tre":     3,
	"quattro": 4,
	"cinque":  5,
	"sei":     6,
	"sette":   7,
	"otto":    8,
	"nove":    9,
	"dieci":   10,
}

// Fold lowercases s and strips diacritics, keeping punctuation intact.
func Fold(s string) string {
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// Normalize folds s and collapses every run of non-alphanumeric characters
// into a single space. "Décolleté!" and " decollete " both become "decollete".
func Normalize(s string) string {
	folded := Fold(s)
	if folded == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(folded))
	pendingSpace := false
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
			continue
		}
		pendingSpace = true
	}
	return b.String()
}

// Tokens returns the normalized words of s.
func Tokens(s string) []string {
	normalized := Normalize(s)
	if normalized == "" {
		return nil
	}
	return strings.Split(normalized, " ")
}

// Quantity maps a digit or an Italian number word ("uno".."dieci", "un",
// "una") to an integer clamped to [MinQuantity, MaxQuantity].
func Quantity(token string) (int, bool) {
	tok := Normalize(token)
	if tok == "" {
		return 0, false
	}
	if n, ok := numberWords[tok]; ok {
		return n, true
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, false
	}
	return ClampQuantity(n), true
}

// ClampQuantity forces n into the accepted quantity range.
func ClampQuantity(n int) int {
	if n < MinQuantity {
		return MinQuantity
	}
	if n > MaxQuantity {
		return MaxQuantity
	}
	return n
}

// ContainsPhrase reports whether the normalized phrase occurs in normalized
// text on word boundaries.
func ContainsPhrase(normalizedText, normalizedPhrase string) bool {
	if normalizedPhrase == "" {
		return false
	}
	return strings.Contains(" "+normalizedText+" ", " "+normalizedPhrase+" ")
}

// ContainsAny reports whether any of the phrases occurs in normalized text.
func ContainsAny(normalizedText string, phrases ...string) bool {
	for _, p := range phrases {
		if ContainsPhrase(normalizedText, p) {
			return true
		}
	}
	return false
}

// HasPrefixWord reports whether any token of normalized text starts with one of the stems.
func HasPrefixWord(normalizedText string, stems ...string) bool {
	for _, tok := range strings.Fields(normalizedText) {
		for _, stem := range stems {
			if strings.HasPrefix(tok, stem) {
				return true
			}
		}
	}
	return false
}
