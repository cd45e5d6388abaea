package intent

import (
	"strings"

	"github.com/zhouzirui/aiva/backend/internal/analysis/text"
)

// Label 表示兜底应答可识别的意图。
type Label string

const (
	None      Label = "none"
	Close     Label = "close"
	Shipping  Label = "shipping"
	Sale      Label = "sale"
	ClearCart Label = "clear_cart"
	RemoveOne Label = "remove_last"
	Cart      Label = "cart"
	AddToCart Label = "add_to_cart"
	SizeGuide Label = "size_guide"
	Recommend Label = "recommend"
	Search    Label = "search"
)

// Decision 给出意图识别结果与用于检索的剩余查询词。
type Decision struct {
	Intent  Label
	Keyword string
	Query   string
}

type bucket struct {
	label    Label
	keywords []string
}

// buckets are evaluated in order; the first bucket with a hit wins.
var buckets = []bucket{
	{Close, []string{"grazie e tutto", "e tutto", "basta cosi", "ho finito", "chiudi", "arrivederci", "ciao ciao", "a presto"}},
	{Shipping, []string{"spedizione", "spedizioni", "consegna", "spedite", "corriere", "reso", "resi"}},
	{Sale, []string{"offerte", "offerta", "sconti", "sconto", "promozioni", "saldi"}},
	{ClearCart, []string{"svuota il carrello", "svuota carrello", "svuota"}},
	{RemoveOne, []string{"togli l ultimo", "rimuovi l ultimo", "elimina l ultimo", "togli", "rimuovi"}},
	{AddToCart, []string{"aggiungi", "metti", "inserisci"}},
	{Cart, []string{"carrello"}},
	{SizeGuide, []string{"guida taglie", "guida alle taglie", "tabella taglie", "taglia", "taglie", "misura", "misure"}},
	{Recommend, []string{"consiglia", "consigli", "consigliami", "suggerisci", "suggerimenti", "abbinare", "abbinamento"}},
	{Search, []string{"cerca", "cercami", "cerco", "voglio", "vorrei", "mostra", "mostrami", "trovami", "fammi vedere"}},
}

// Detect 根据关键词包含关系识别意图，不做模糊匹配。
func Detect(utterance string) Decision {
	norm := text.Normalize(utterance)
	if norm == "" {
		return Decision{Intent: None}
	}

	for _, b := range buckets {
		for _, kw := range b.keywords {
			if text.ContainsPhrase(norm, kw) {
				d := Decision{Intent: b.label, Keyword: kw}
				if b.label == Search {
					d.Query = residualQuery(norm)
				}
				return d
			}
		}
	}
	return Decision{Intent: None}
}

var searchNoise = map[string]bool{
	"cerca": true, "cercami": true, "cerco": true, "voglio": true, "vorrei": true,
	"mostra": true, "mostrami": true, "trovami": true, "fammi": true, "vedere": true,
	"per": true, "favore": true, "mi": true, "un": true, "una": true, "uno": true,
	"dei": true, "delle": true, "degli": true, "il": true, "la": true, "le": true,
	"lo": true, "gli": true, "i": true, "qualche": true,
}

// residualQuery strips the search verb and filler words, keeping what to look for.
func residualQuery(norm string) string {
	var kept []string
	for _, tok := range strings.Fields(norm) {
		if searchNoise[tok] {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}
