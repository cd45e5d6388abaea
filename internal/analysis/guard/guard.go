package guard

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxLength is the longest utterance accepted before it is treated as an attack.
const MaxLength = 1000

// SafeMessage is the only reply ever sent for an unsafe utterance. It never
// echoes the input back.
const SafeMessage = "Sono qui per aiutarti con lo shopping! Posso mostrarti i nostri prodotti o aiutarti con il carrello. Cosa preferisci vedere?"

var patterns = compile(
	// prompt extraction and role override, english
	`ignore.*previous.*instruction`,
	`ignore.*above.*instruction`,
	`reveal.*prompt`,
	`reveal.*instruction`,
	`show.*system.*prompt`,
	`what.*are.*your.*instruction`,
	`what.*are.*your.*rule`,
	`you\s+are\s+now`,
	`pretend\s+to\s+be`,
	`\bact\s+as\b`,
	// prompt extraction and role override, italian
	`ignora.*istruzioni.*precedent`,
	`rivela.*prompt`,
	`mostra.*istruzioni`,
	`quali.*sono.*le.*tue.*(istruzioni|regole)`,
	`\bsei\s+ora\b`,
	`fai\s+finta\s+di\s+essere`,
	`comportati\s+come`,
	// code, markup and sql
	`system\s*:`,
	`assistant\s*:`,
	`execute.*code`,
	`eval\s*\(`,
	`\bimport\s+\w`,
	"(?s)```.*```",
	`<\s*script`,
	`function\s*\(`,
	`exec\s*\(`,
	`drop\s+table`,
	`select\s+\*`,
	`union\s+select`,
)

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		out = append(out, regexp.MustCompile(expr))
	}
	return out
}

// Inspect returns the pattern that flagged text, or "" when text is safe.
// Over-long input reports "length".
func Inspect(text string) string {
	if utf8.RuneCountInString(text) > MaxLength {
		return "length"
	}
	lowered := strings.ToLower(text)
	for _, re := range patterns {
		if re.MatchString(lowered) {
			return re.String()
		}
	}
	return ""
}

// IsUnsafe reports whether text must be refused without further processing.
func IsUnsafe(text string) bool {
	return Inspect(text) != ""
}
