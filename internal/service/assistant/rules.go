package assistant

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/zhouzirui/aiva/backend/internal/analysis/entity"
	"github.com/zhouzirui/aiva/backend/internal/analysis/text"
	"github.com/zhouzirui/aiva/backend/internal/model/action"
	"github.com/zhouzirui/aiva/backend/internal/model/catalog"
	"github.com/zhouzirui/aiva/backend/internal/model/session"
)

// Input is one utterance as seen by the shortcut rules.
type Input struct {
	Text       string
	Normalized string
	Context    *session.Context
}

// Outcome is the complete event sequence of a resolved utterance, without
// the terminal event.
type Outcome struct {
	Events []action.Event
}

// Rule either fully resolves an utterance or declines.
type Rule interface {
	Name() string
	Attempt(ctx context.Context, in *Input) (Outcome, bool)
}

func (in *Input) product() *session.ProductSnapshot {
	if in.Context == nil {
		return nil
	}
	return in.Context.CurrentProduct
}

func (in *Input) visible() []session.VisibleProduct {
	if in.Context == nil {
		return nil
	}
	return in.Context.VisibleProducts
}

var browseVerbs = []string{
	"mostra", "mostrami", "fammi vedere", "vedere", "cerca", "cercami", "cerco",
	"voglio", "vorrei", "avete", "hai", "ci sono", "trovami", "elenca", "dammi", "portami",
}

var articles = map[string]bool{
	"il": true, "lo": true, "la": true, "l": true, "i": true, "gli": true, "le": true,
	"un": true, "una": true, "uno": true, "del": true, "della": true, "dei": true, "delle": true,
}

// ---- 1. open product page ----

var openProduct = regexp.MustCompile(`(?:^|\s)(?:apri|aprimi|visualizza|vai al prodotto|mostrami il prodotto|fammi vedere il prodotto)\s+(.+)$`)

var navigationNames = []string{
	"carrello", "home", "homepage", "checkout", "cassa", "offerte", "pagina", "catalogo", "prodotti", "negozio",
}

type openProductRule struct {
	matcher *entity.ProductMatcher
	logger  *zap.Logger
}

func (r *openProductRule) Name() string { return "open_product" }

func (r *openProductRule) Attempt(ctx context.Context, in *Input) (Outcome, bool) {
	m := openProduct.FindStringSubmatch(in.Normalized)
	if m == nil {
		return Outcome{}, false
	}
	name := stripArticles(strings.TrimPrefix(stripArticles(m[1]), "prodotto "))
	if name == "" || text.ContainsAny(name, navigationNames...) || isCategoryOnly(name) {
		return Outcome{}, false
	}

	match, err := r.matcher.Match(ctx, name, in.visible())
	if err != nil {
		if !errors.Is(err, entity.ErrNoProduct) {
			r.logger.Warn("product lookup failed", zap.String("name", name), zap.Error(err))
		}
		r.logger.Info("product not resolved", zap.String("name", name), zap.Error(fmt.Errorf("%w: %w", ErrAmbiguousEntity, err)))
		return Outcome{Events: []action.Event{
			action.Response(fmt.Sprintf("Non ho trovato il prodotto \"%s\". Puoi ripetere il nome completo?", name)),
		}}, true
	}

	params := map[string]any{"product_id": match.ID}
	return Outcome{Events: []action.Event{
		action.FunctionComplete(action.GetProductDetails, params, fmt.Sprintf("Ti mostro %s.", match.Name)),
	}}, true
}

func stripArticles(norm string) string {
	tokens := strings.Fields(norm)
	for len(tokens) > 0 && articles[tokens[0]] {
		tokens = tokens[1:]
	}
	return strings.Join(tokens, " ")
}

var filterWords = map[string]bool{
	"da": true, "per": true, "uomo": true, "donna": true, "in": true, "offerta": true,
	"saldo": true, "scontati": true, "scontate": true, "tutte": true, "tutti": true,
}

// isCategoryOnly reports whether name is a category phrase optionally
// followed by colour and filter words ("felpe nere da uomo").
func isCategoryOnly(name string) bool {
	m, ok := entity.ResolveCategory(name)
	if !ok || !strings.HasPrefix(name+" ", m.Phrase+" ") {
		return false
	}
	for _, tok := range strings.Fields(strings.TrimPrefix(name, m.Phrase)) {
		if _, isColor := entity.CanonicalColor(tok); isColor || filterWords[tok] {
			continue
		}
		return false
	}
	return true
}

// ---- 2. multi-variant add to cart ----

type multiVariantRule struct {
	logger *zap.Logger
}

func (r *multiVariantRule) Name() string { return "multi_variant_add" }

func (r *multiVariantRule) Attempt(_ context.Context, in *Input) (Outcome, bool) {
	p := in.product()
	if p == nil || !entity.IsMultiVariantRequest(in.Text) {
		return Outcome{}, false
	}

	refs, issues := entity.ExtractVariants(in.Text, p)
	if len(refs) == 0 && len(issues) == 0 {
		return Outcome{}, false
	}

	events := make([]action.Event, 0, 2*len(refs)+1)
	parts := make([]string, 0, len(refs))
	for _, ref := range refs {
		params := map[string]any{
			"product_id": p.ID,
			"size":       ref.Size,
			"color":      ref.Color,
			"quantity":   ref.Quantity,
		}
		events = append(events,
			action.FunctionStart(action.AddToCart, action.QuickResponse(action.AddToCart)),
			action.FunctionComplete(action.AddToCart, params, ""),
		)
		parts = append(parts, describeRef(ref))
	}

	events = append(events, action.Response(summarizeAdd(parts, issues)))
	return Outcome{Events: events}, true
}

func describeRef(ref entity.VariantRef) string {
	unit := "pezzo"
	if ref.Quantity > 1 {
		unit = "pezzi"
	}
	return fmt.Sprintf("%d %s taglia %s colore %s", ref.Quantity, unit, ref.Size, text.Fold(ref.Color))
}

func summarizeAdd(parts, issues []string) string {
	var b strings.Builder
	if len(parts) > 0 {
		b.WriteString("Ho aggiunto al carrello ")
		b.WriteString(joinItalian(parts))
		b.WriteString(".")
	}
	if len(issues) > 0 {
		if b.Len() > 0 {
			b.WriteString(" Non ho potuto aggiungere: ")
		} else {
			b.WriteString("Non ho potuto aggiungere: ")
		}
		b.WriteString(joinItalian(issues))
		b.WriteString(".")
	}
	return b.String()
}

// joinItalian joins items with commas and "e" before the last one.
func joinItalian(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " e " + items[len(items)-1]
}

// ---- 3. offers ----

type offersRule struct{}

func (offersRule) Name() string { return "offers" }

func (offersRule) Attempt(_ context.Context, in *Input) (Outcome, bool) {
	if !entity.HasSaleKeyword(in.Normalized) {
		return Outcome{}, false
	}
	if _, ok := entity.ResolveCategory(in.Normalized); ok {
		return Outcome{}, false
	}
	return Outcome{Events: []action.Event{
		action.FunctionComplete(action.NavigateToPage, map[string]any{"page": action.PageOffers}, "Ecco le nostre offerte!"),
		action.FunctionComplete(action.ApplyUIFilters, map[string]any{"on_sale": true}, ""),
		action.FunctionComplete(action.SearchProducts, map[string]any{
			"query":   "",
			"filters": map[string]any{"on_sale": true},
		}, ""),
	}}, true
}

// ---- 4. category browse ----

type categoryRule struct{}

func (categoryRule) Name() string { return "category_browse" }

func (categoryRule) Attempt(_ context.Context, in *Input) (Outcome, bool) {
	m, ok := entity.ResolveCategory(in.Normalized)
	if !ok {
		return Outcome{}, false
	}
	if !text.ContainsAny(in.Normalized, browseVerbs...) && !isCategoryOnly(stripArticles(in.Normalized)) {
		return Outcome{}, false
	}

	filters := func() map[string]any {
		f := map[string]any{"category": m.Category}
		if g, ok := entity.FindGender(in.Normalized); ok {
			f["gender"] = g
		}
		if c, ok := entity.FindColor(in.Normalized); ok {
			f["color"] = c
		}
		if entity.HasSaleKeyword(in.Normalized) {
			f["on_sale"] = true
		}
		return f
	}

	return Outcome{Events: []action.Event{
		action.FunctionComplete(action.NavigateToPage, map[string]any{"page": action.PageProducts}, ""),
		action.FunctionComplete(action.ApplyUIFilters, filters(), ""),
		action.FunctionComplete(action.SearchProducts, map[string]any{
			"query":   m.Category,
			"filters": filters(),
		}, fmt.Sprintf("Ecco %s che abbiamo.", categoryLabel(m.Category))),
	}}, true
}

var categoryLabels = map[string]string{
	catalog.CategoryTShirt:    "le t-shirt",
	catalog.CategoryCamicia:   "le camicie",
	catalog.CategoryMaglione:  "i maglioni",
	catalog.CategoryFelpa:     "le felpe",
	catalog.CategoryGiacca:    "le giacche",
	catalog.CategoryPantaloni: "i pantaloni",
	catalog.CategoryShorts:    "gli shorts",
	catalog.CategoryGonna:     "le gonne",
	catalog.CategoryVestito:   "i vestiti",
	catalog.CategoryScarpe:    "le scarpe",
	catalog.CategoryAccessori: "gli accessori",
}

func categoryLabel(category string) string {
	if l, ok := categoryLabels[category]; ok {
		return l
	}
	return category
}

// ---- 5. catalog browse ----

type catalogRule struct{}

func (catalogRule) Name() string { return "catalog_browse" }

func (catalogRule) Attempt(_ context.Context, in *Input) (Outcome, bool) {
	n := in.Normalized
	hit := text.ContainsAny(n, "tutti i prodotti", "catalogo") ||
		stripArticles(n) == "prodotti" ||
		(text.ContainsPhrase(n, "prodotti") && text.ContainsAny(n, browseVerbs...))
	if !hit {
		return Outcome{}, false
	}
	return Outcome{Events: []action.Event{
		action.FunctionComplete(action.NavigateToPage, map[string]any{"page": action.PageProducts}, "Ecco tutto il nostro catalogo."),
	}}, true
}

// ---- 6. product description ----

var descriptionKeywords = []string{
	"descrizione", "descrivi", "descrivimelo", "descrivimela", "parlami", "dimmi di piu",
	"raccontami", "dettagli", "com e fatto", "com e fatta", "di che materiale", "caratteristiche",
}

type descriptionRule struct {
	limit int
}

func (r *descriptionRule) Name() string { return "product_description" }

func (r *descriptionRule) Attempt(_ context.Context, in *Input) (Outcome, bool) {
	p := in.product()
	if p == nil || !text.ContainsAny(in.Normalized, descriptionKeywords...) {
		return Outcome{}, false
	}
	body := p.DescriptionLong
	if body == "" {
		body = p.Description
	}
	if body == "" {
		return Outcome{Events: []action.Event{
			action.Response(fmt.Sprintf("Stai guardando %s, ma non ho altri dettagli da aggiungere.", p.Name)),
		}}, true
	}
	return Outcome{Events: []action.Event{
		action.Response(fmt.Sprintf("%s: %s", p.Name, Excerpt(body, r.limit))),
	}}, true
}

// Excerpt bounds s to limit runes, cutting at the last sentence end or,
// failing that, the last word boundary.
func Excerpt(s string, limit int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if limit <= 0 || len(runes) <= limit {
		return s
	}
	cut := string(runes[:limit])
	if i := strings.LastIndexAny(cut, ".!?"); i > len(cut)/2 {
		return cut[:i+1]
	}
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		return strings.TrimRight(cut[:i], ",;:") + "..."
	}
	return cut + "..."
}

// ---- 7. what am I viewing ----

var viewingKeywords = []string{
	"cosa sto guardando", "cosa sto vedendo", "che prodotto e", "quale prodotto e",
	"che cos e questo", "cos e questo", "su che prodotto sono", "che articolo e",
}

type viewingRule struct{}

func (viewingRule) Name() string { return "current_product" }

func (viewingRule) Attempt(_ context.Context, in *Input) (Outcome, bool) {
	p := in.product()
	if p == nil || !text.ContainsAny(in.Normalized, viewingKeywords...) {
		return Outcome{}, false
	}
	return Outcome{Events: []action.Event{
		action.Response(fmt.Sprintf("Stai guardando %s.", p.Name)),
	}}, true
}

// ---- 8. size availability ----

var sizeKeywords = []string{"taglia", "taglie", "misura", "misure", "che taglie", "quali taglie"}

type sizeAvailabilityRule struct{}

func (sizeAvailabilityRule) Name() string { return "size_availability" }

func (sizeAvailabilityRule) Attempt(_ context.Context, in *Input) (Outcome, bool) {
	p := in.product()
	if p == nil || !text.ContainsAny(in.Normalized, sizeKeywords...) {
		return Outcome{}, false
	}
	if text.ContainsAny(in.Normalized, "guida", "tabella") {
		return Outcome{}, false
	}
	sizes := availableSizes(p)
	if len(sizes) == 0 {
		return Outcome{}, false
	}
	return Outcome{Events: []action.Event{
		action.Response(fmt.Sprintf("%s è disponibile nelle taglie %s.", p.Name, joinItalian(sizes))),
	}}, true
}

// availableSizes returns the distinct sizes of available variants in size order.
func availableSizes(p *session.ProductSnapshot) []string {
	seen := make(map[string]bool)
	var sizes []string
	for _, v := range p.Variants {
		size := strings.ToUpper(v.Size)
		if !v.Available || seen[size] {
			continue
		}
		seen[size] = true
		sizes = append(sizes, size)
	}
	sort.SliceStable(sizes, func(i, j int) bool {
		return catalog.SizeRank(sizes[i]) < catalog.SizeRank(sizes[j])
	})
	return sizes
}

// ---- 9. size guide ----

type sizeGuideRule struct {
	catalog catalog.Catalog
	logger  *zap.Logger
}

func (r *sizeGuideRule) Name() string { return "size_guide" }

func (r *sizeGuideRule) Attempt(ctx context.Context, in *Input) (Outcome, bool) {
	n := in.Normalized
	asksGuide := text.ContainsAny(n, "guida", "tabella") && text.ContainsAny(n, "taglia", "taglie", "misure")
	if !asksGuide && !text.ContainsAny(n, "che taglia porto", "che taglia sono", "quale taglia mi serve") {
		return Outcome{}, false
	}
	if r.catalog == nil {
		return Outcome{}, false
	}

	category := catalog.CategoryTShirt
	if p := in.product(); p != nil && p.Category != "" {
		category = p.Category
	} else if m, ok := entity.ResolveCategory(n); ok {
		category = m.Category
	}

	guide, err := r.catalog.SizeGuide(ctx, category)
	if err != nil {
		r.logger.Warn("size guide lookup failed", zap.String("category", category), zap.Error(err))
		return Outcome{}, false
	}
	params := map[string]any{"category": category, "guide": guide}
	return Outcome{Events: []action.Event{
		action.FunctionComplete(action.GetSizeGuide, params, fmt.Sprintf("Ecco la guida alle taglie per %s.", categoryLabel(category))),
	}}, true
}
