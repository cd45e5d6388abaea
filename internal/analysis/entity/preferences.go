package entity

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/zhouzirui/aiva/backend/internal/analysis/text"
	"github.com/zhouzirui/aiva/backend/internal/model/session"
)

var (
	sizeMention  = regexp.MustCompile(`\btaglia (xxl|xl|xs|s|m|l)\b`)
	bareSize     = regexp.MustCompile(`\b(xxl|xl|xs)\b`)
	priceMention = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(?:euro|eur|€)`)
)

var styleWords = []struct{ word, style string }{
	{"casual", "casual"},
	{"elegante", "elegante"},
	{"eleganti", "elegante"},
	{"sportivo", "sport"},
	{"sportiva", "sport"},
	{"formale", "formale"},
	{"streetwear", "streetwear"},
	{"vintage", "vintage"},
}

// ExtractPreferences reads soft preferences (size, colour, style, gender,
// budget) stated in an utterance.
func ExtractPreferences(raw string) session.Preferences {
	var prefs session.Preferences
	norm := text.Normalize(raw)
	if norm == "" {
		return prefs
	}

	if m := sizeMention.FindStringSubmatch(norm); m != nil {
		prefs.Size = strings.ToUpper(m[1])
	} else if m := bareSize.FindStringSubmatch(norm); m != nil {
		prefs.Size = strings.ToUpper(m[1])
	}

	if c, ok := FindColor(norm); ok {
		prefs.Color = c
	}

	for _, s := range styleWords {
		if text.ContainsPhrase(norm, s.word) {
			prefs.Style = s.style
			break
		}
	}

	switch {
	case text.ContainsAny(norm, "uomo", "uomini", "maschile"):
		prefs.Gender = "uomo"
	case text.ContainsAny(norm, "donna", "donne", "femminile"):
		prefs.Gender = "donna"
	}

	if m := priceMention.FindStringSubmatch(strings.ToLower(raw)); m != nil {
		if v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64); err == nil && v > 0 {
			prefs.MaxPrice = &v
		}
	}
	return prefs
}
