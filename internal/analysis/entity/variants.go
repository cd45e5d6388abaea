package entity

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/zhouzirui/aiva/backend/internal/analysis/text"
	"github.com/zhouzirui/aiva/backend/internal/model/catalog"
	"github.com/zhouzirui/aiva/backend/internal/model/session"
)

// VariantRef is one resolved size/colour/quantity request.
type VariantRef struct {
	Size     string
	Color    string
	Quantity int
}

var addStems = []string{"aggiung", "mett", "inseris"}

// boundary marks sentence punctuation inside the token stream.
const boundary = "|"

var connectors = map[string]bool{"e": true, "ed": true, "oppure": true, "o": true}

// colorFillers may sit between the size and the colour phrase.
var colorFillers = map[string]bool{"colore": true, "di": true, "in": true, "col": true, "nel": true, "color": true}

const maxColorWords = 3

// IsMultiVariantRequest reports whether text names a size and a cart-add verb.
func IsMultiVariantRequest(raw string) bool {
	norm := text.Normalize(raw)
	return text.ContainsPhrase(norm, "taglia") && text.HasPrefixWord(norm, addStems...)
}

// ExtractVariants finds every "[quantity] taglia SIZE [colore] COLOR" mention
// in raw and resolves the colour against the product's variants. Once a
// "taglia" mention has been seen, a bare size after a connector or a quantity
// ("e L bianca", "3 L bianco") starts a mention too. Mentions of the same
// size and colour are summed. Unresolved mentions are reported as
// human-readable issues.
func ExtractVariants(raw string, product *session.ProductSnapshot) ([]VariantRef, []string) {
	if product == nil || !IsMultiVariantRequest(raw) {
		return nil, nil
	}

	tokens := variantTokens(raw)
	colors := distinctColors(product.Variants)

	var (
		refs       []VariantRef
		issues     []string
		seenTaglia bool
	)
	for i := 1; i < len(tokens); i++ {
		size := strings.ToUpper(tokens[i])
		prev := tokens[i-1]
		if prev == "taglia" {
			seenTaglia = true
		}
		if !catalog.IsSize(size) {
			continue
		}

		var qty int
		switch {
		case prev == "taglia":
			qty = quantityBefore(tokens, i-1)
		case seenTaglia && (connectors[prev] || isNumber(prev)):
			qty = quantityBefore(tokens, i)
		default:
			continue
		}

		phrase := colorPhrase(tokens, i+1)
		color, issue := resolveColor(size, phrase, colors, product.Variants)
		if issue != "" {
			issues = append(issues, issue)
			continue
		}
		refs = mergeRef(refs, VariantRef{Size: size, Color: color, Quantity: qty})
	}
	return refs, issues
}

func isNumber(tok string) bool {
	_, err := strconv.Atoi(tok)
	return err == nil
}

// variantTokens folds raw, maps number words to digits and keeps sentence
// punctuation as boundary tokens.
func variantTokens(raw string) []string {
	var b strings.Builder
	for _, r := range text.Fold(raw) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '\'' || r == '’':
			// elisions such as "l'altra" stay one word so they never read as a size
		case strings.ContainsRune(",.;:!?", r):
			b.WriteString(" " + boundary + " ")
		default:
			b.WriteByte(' ')
		}
	}
	fields := strings.Fields(b.String())
	for i, f := range fields {
		if f == boundary {
			continue
		}
		if n, ok := text.Quantity(f); ok {
			fields[i] = strconv.Itoa(n)
		}
	}
	return fields
}

func quantityBefore(tokens []string, idx int) int {
	for j := idx - 1; j >= 0 && j >= idx-2; j-- {
		tok := tokens[j]
		if tok == "pezzo" || tok == "pezzi" || tok == "capi" {
			continue
		}
		if n, err := strconv.Atoi(tok); err == nil {
			return text.ClampQuantity(n)
		}
		break
	}
	return 1
}

func colorPhrase(tokens []string, start int) string {
	words := make([]string, 0, maxColorWords)
	for j := start; j < len(tokens) && len(words) < maxColorWords; j++ {
		tok := tokens[j]
		if tok == boundary || connectors[tok] || tok == "taglia" {
			break
		}
		if isNumber(tok) {
			break
		}
		if len(words) == 0 && colorFillers[tok] {
			continue
		}
		words = append(words, tok)
	}
	return strings.Join(words, " ")
}

type colorEntry struct {
	key     string
	display string
}

func distinctColors(variants []catalog.Variant) []colorEntry {
	seen := make(map[string]bool)
	var out []colorEntry
	for _, v := range variants {
		key := colorKey(v.Color)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, colorEntry{key: key, display: v.Color})
	}
	return out
}

func resolveColor(size, phrase string, colors []colorEntry, variants []catalog.Variant) (string, string) {
	if phrase == "" {
		if len(colors) == 1 {
			return checkAvailable(size, colors[0], variants)
		}
		return "", fmt.Sprintf("taglia %s (specifica il colore)", size)
	}

	key := colorKey(phrase)
	for _, c := range colors {
		if c.key == key {
			return checkAvailable(size, c, variants)
		}
	}

	// "grigio" alone resolves when exactly one variant colour starts with it
	var candidates []colorEntry
	first := strings.Fields(key)[0]
	for _, c := range colors {
		if strings.HasPrefix(c.key+" ", first+" ") {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 1 {
		return checkAvailable(size, candidates[0], variants)
	}
	return "", fmt.Sprintf("taglia %s colore %s (non disponibile)", size, phrase)
}

func checkAvailable(size string, c colorEntry, variants []catalog.Variant) (string, string) {
	for _, v := range variants {
		if strings.EqualFold(v.Size, size) && colorKey(v.Color) == c.key {
			if v.Available {
				return v.Color, ""
			}
			break
		}
	}
	return "", fmt.Sprintf("taglia %s colore %s (non disponibile)", size, strings.ToLower(c.display))
}

func mergeRef(refs []VariantRef, ref VariantRef) []VariantRef {
	for i := range refs {
		if refs[i].Size == ref.Size && colorKey(refs[i].Color) == colorKey(ref.Color) {
			refs[i].Quantity = text.ClampQuantity(refs[i].Quantity + ref.Quantity)
			return refs
		}
	}
	return append(refs, ref)
}
