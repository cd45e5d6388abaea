package assistant

import (
	"fmt"
	"math"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/zhouzirui/aiva/backend/internal/analysis/entity"
	"github.com/zhouzirui/aiva/backend/internal/analysis/text"
	"github.com/zhouzirui/aiva/backend/internal/model/action"
	"github.com/zhouzirui/aiva/backend/internal/model/catalog"
)

const (
	defaultSize     = "M"
	defaultColor    = "nero"
	defaultQuantity = 1
	maxQueryLength  = 100
)

// pageSynonyms maps spoken destinations to canonical pages.
var pageSynonyms = map[string]string{
	"home":            action.PageHome,
	"homepage":        action.PageHome,
	"home page":       action.PageHome,
	"inizio":          action.PageHome,
	"principale":      action.PageHome,
	"pagina iniziale": action.PageHome,
	"prodotti":        action.PageProducts,
	"catalogo":        action.PageProducts,
	"negozio":         action.PageProducts,
	"shop":            action.PageProducts,
	"products":        action.PageProducts,
	"offerte":         action.PageOffers,
	"offerta":         action.PageOffers,
	"saldi":           action.PageOffers,
	"sconti":          action.PageOffers,
	"promozioni":      action.PageOffers,
	"carrello":        action.PageCart,
	"cart":            action.PageCart,
	"borsa":           action.PageCart,
	"checkout":        action.PageCheckout,
	"cassa":           action.PageCheckout,
	"pagamento":       action.PageCheckout,
	"paga":            action.PageCheckout,
}

// CanonicalPage maps a spoken destination to one of the canonical pages.
func CanonicalPage(raw string) (string, bool) {
	norm := text.Normalize(raw)
	if page, ok := pageSynonyms[norm]; ok {
		return page, true
	}
	norm = strings.TrimPrefix(norm, "pagina ")
	if page, ok := pageSynonyms[norm]; ok {
		return page, true
	}
	if action.IsPage(norm) {
		return norm, true
	}
	return "", false
}

var templates = map[action.Name][]string{
	action.SearchProducts: {
		"Cerco {query} nel nostro catalogo...",
		"Vediamo cosa abbiamo di {query}...",
		"Ti mostro subito i nostri {query}...",
	},
	action.GetProductDetails: {
		"Ti mostro i dettagli del prodotto.",
		"Ecco la scheda del prodotto.",
	},
	action.AddToCart: {
		"Aggiungo l'articolo al carrello.",
		"Lo metto subito nel carrello: taglia {size}, colore {color}.",
		"Perfetto, aggiungo la taglia {size} in {color}.",
	},
	action.RemoveFromCart:     {"Rimuovo l'articolo dal carrello."},
	action.RemoveLastCartItem: {"Tolgo l'ultimo articolo che hai aggiunto."},
	action.UpdateCartQuantity: {"Aggiorno la quantità nel carrello a {quantity}.", "Aggiorno la quantità nel carrello."},
	action.NavigateToPage: {
		"Ti porto alla pagina {page}.",
		"Eccoci, apro la pagina {page}.",
	},
	action.GetCartSummary:       {"Ecco il riepilogo del tuo carrello.", "Ti mostro cosa c'è nel carrello."},
	action.ClearCart:            {"Svuoto il carrello."},
	action.GetRecommendations:   {"Ecco alcuni suggerimenti per te.", "Ho qualche idea che potrebbe piacerti."},
	action.GetSizeGuide:         {"Ecco la guida alle taglie per {category}.", "Ecco la guida alle taglie."},
	action.GetCurrentPromotions: {"Ti mostro le promozioni attive.", "Ecco le offerte del momento."},
	action.GetShippingInfo:      {"Ecco le informazioni sulla spedizione."},
	action.ApplyUIFilters:       {"Applico i filtri."},
	action.CloseConversation:    {"Grazie a te! A presto.", "È stato un piacere aiutarti. A presto!"},
}

var placeholder = regexp.MustCompile(`\{(\w+)\}`)

// Validator whitelists proposed actions and enriches their parameters.
type Validator struct {
	logger *zap.Logger
	pick   func(n int) int
}

// NewValidator creates a validator. A nil pick selects templates at random.
func NewValidator(logger *zap.Logger, pick func(n int) int) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pick == nil {
		pick = rand.IntN
	}
	return &Validator{logger: logger.Named("validator"), pick: pick}
}

// Validate checks name against the closed action set and fills or
// canonicalizes params in place using rawText as a safety net.
func (v *Validator) Validate(name string, params map[string]any, rawText string) error {
	if !action.Known(name) {
		v.logger.Warn("rejected unknown action", zap.String("function", name))
		return fmt.Errorf("%w: %s", ErrUnknownAction, name)
	}
	if params == nil {
		return fmt.Errorf("%w: nil parameters", ErrInvalidParameters)
	}

	switch action.Name(name) {
	case action.SearchProducts:
		return v.validateSearch(params, rawText)
	case action.AddToCart:
		return v.validateAddToCart(params)
	case action.NavigateToPage:
		return v.validateNavigate(params)
	}
	return nil
}

func (v *Validator) validateSearch(params map[string]any, rawText string) error {
	query, ok := params["query"].(string)
	if !ok {
		return fmt.Errorf("%w: search_products requires query", ErrInvalidParameters)
	}
	query = strings.TrimSpace(query)
	if len([]rune(query)) > maxQueryLength {
		return fmt.Errorf("%w: query too long", ErrInvalidParameters)
	}
	params["query"] = query

	filters, ok := params["filters"].(map[string]any)
	if !ok {
		filters = make(map[string]any)
		params["filters"] = filters
	}
	if gender, ok := entity.FindGender(rawText); ok {
		setIfAbsent(filters, "gender", gender)
	}
	if color, ok := entity.FindColor(rawText); ok {
		setIfAbsent(filters, "color", color)
	}
	if entity.HasSaleKeyword(rawText) {
		setIfAbsent(filters, "on_sale", true)
	}
	return nil
}

func setIfAbsent(m map[string]any, key string, value any) {
	if current, ok := m[key]; ok && current != nil && current != "" {
		return
	}
	m[key] = value
}

func (v *Validator) validateAddToCart(params map[string]any) error {
	id, _ := params["product_id"].(string)
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: add_to_cart requires product_id", ErrInvalidParameters)
	}

	size, _ := params["size"].(string)
	size = strings.ToUpper(strings.TrimSpace(size))
	if !catalog.IsSize(size) {
		size = defaultSize
	}
	params["size"] = size

	color, _ := params["color"].(string)
	if strings.TrimSpace(color) == "" {
		color = defaultColor
	}
	params["color"] = strings.TrimSpace(color)

	qty, ok := asInt(params["quantity"])
	if !ok || qty < text.MinQuantity || qty > text.MaxQuantity {
		qty = defaultQuantity
	}
	params["quantity"] = qty
	return nil
}

func (v *Validator) validateNavigate(params map[string]any) error {
	raw, _ := params["page"].(string)
	page, ok := CanonicalPage(raw)
	if !ok {
		return fmt.Errorf("%w: unknown page %q", ErrInvalidParameters, raw)
	}
	params["page"] = page
	return nil
}

// asInt accepts JSON numbers and numeric strings that hold a whole value.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.IsNaN(n) {
			return 0, false
		}
		return int(n), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	}
	return 0, false
}

// Message renders a confirmation for the action from a randomly chosen
// template. A template with an unresolved placeholder is returned verbatim.
func (v *Validator) Message(name action.Name, params map[string]any) string {
	options := templates[name]
	if len(options) == 0 {
		return "Elaboro la tua richiesta."
	}
	tpl := options[v.pick(len(options))]
	return render(tpl, params)
}

func render(tpl string, params map[string]any) string {
	missing := false
	out := placeholder.ReplaceAllStringFunc(tpl, func(m string) string {
		key := m[1 : len(m)-1]
		val, ok := params[key]
		if !ok || val == nil {
			missing = true
			return m
		}
		s := fmt.Sprint(val)
		if s == "" {
			missing = true
			return m
		}
		return s
	})
	if missing {
		return tpl
	}
	return out
}
