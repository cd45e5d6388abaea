package action

import (
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/aiva/backend/internal/model/catalog"
)

func str(desc string) *schema.ParameterInfo {
	return &schema.ParameterInfo{Type: schema.String, Desc: desc}
}

func required(p *schema.ParameterInfo) *schema.ParameterInfo {
	p.Required = true
	return p
}

func filtersParam() *schema.ParameterInfo {
	return &schema.ParameterInfo{
		Type: schema.Object,
		Desc: "Filtri opzionali",
		SubParams: map[string]*schema.ParameterInfo{
			"category":  str("Categoria prodotto"),
			"gender":    {Type: schema.String, Enum: []string{"uomo", "donna", "unisex"}},
			"size":      {Type: schema.String, Enum: catalog.Sizes},
			"color":     str("Colore desiderato"),
			"min_price": {Type: schema.Number, Desc: "Prezzo minimo"},
			"max_price": {Type: schema.Number, Desc: "Prezzo massimo"},
			"on_sale":   {Type: schema.Boolean, Desc: "Solo prodotti in offerta"},
		},
	}
}

func tool(name Name, desc string, params map[string]*schema.ParameterInfo) *schema.ToolInfo {
	if params == nil {
		params = map[string]*schema.ParameterInfo{}
	}
	return &schema.ToolInfo{
		Name:        string(name),
		Desc:        desc,
		ParamsOneOf: schema.NewParamsOneOfByParams(params),
	}
}

// Tools returns the parameter schema of every action, ready to bind to a
// tool-calling chat model.
func Tools() []*schema.ToolInfo {
	return []*schema.ToolInfo{
		tool(SearchProducts, "Cerca prodotti nel catalogo", map[string]*schema.ParameterInfo{
			"query":   required(str("Termine di ricerca (es. jeans, felpa, giacca)")),
			"filters": filtersParam(),
		}),
		tool(GetProductDetails, "Apri la scheda di un prodotto", map[string]*schema.ParameterInfo{
			"product_id": required(str("ID del prodotto")),
		}),
		tool(AddToCart, "Aggiungi prodotto al carrello", map[string]*schema.ParameterInfo{
			"product_id": required(str("ID del prodotto")),
			"size":       required(&schema.ParameterInfo{Type: schema.String, Enum: catalog.Sizes}),
			"color":      required(str("Colore della variante")),
			"quantity":   required(&schema.ParameterInfo{Type: schema.Integer, Desc: "Quantità da 1 a 10"}),
		}),
		tool(RemoveFromCart, "Rimuovi un articolo dal carrello", map[string]*schema.ParameterInfo{
			"product_id": required(str("ID del prodotto")),
			"size":       {Type: schema.String, Enum: catalog.Sizes},
			"color":      str("Colore della variante"),
		}),
		tool(RemoveLastCartItem, "Rimuovi l'ultimo articolo aggiunto al carrello", nil),
		tool(UpdateCartQuantity, "Aggiorna la quantità di un articolo nel carrello", map[string]*schema.ParameterInfo{
			"product_id": required(str("ID del prodotto")),
			"quantity":   required(&schema.ParameterInfo{Type: schema.Integer, Desc: "Nuova quantità da 1 a 10"}),
			"size":       {Type: schema.String, Enum: catalog.Sizes},
			"color":      str("Colore della variante"),
		}),
		tool(NavigateToPage, "Naviga verso una pagina", map[string]*schema.ParameterInfo{
			"page": required(&schema.ParameterInfo{Type: schema.String, Enum: Pages}),
		}),
		tool(GetCartSummary, "Mostra riepilogo carrello", nil),
		tool(ClearCart, "Svuota il carrello", nil),
		tool(GetRecommendations, "Ottieni suggerimenti personalizzati", map[string]*schema.ParameterInfo{
			"product_id": str("ID prodotto per suggerimenti correlati"),
			"category":   str("Categoria per suggerimenti"),
			"style":      str("Stile desiderato (casual, elegante, sport)"),
		}),
		tool(GetSizeGuide, "Mostra guida taglie", map[string]*schema.ParameterInfo{
			"category": required(str("Categoria prodotto (es. camicie, pantaloni, scarpe)")),
		}),
		tool(GetCurrentPromotions, "Mostra promozioni attive", nil),
		tool(GetShippingInfo, "Mostra costi e tempi di spedizione", nil),
		tool(ApplyUIFilters, "Applica filtri alla griglia prodotti", map[string]*schema.ParameterInfo{
			"category": str("Categoria prodotto"),
			"gender":   {Type: schema.String, Enum: []string{"uomo", "donna", "unisex"}},
			"color":    str("Colore"),
			"size":     {Type: schema.String, Enum: catalog.Sizes},
			"on_sale":  {Type: schema.Boolean, Desc: "Solo prodotti in offerta"},
		}),
		tool(CloseConversation, "Chiudi la conversazione quando l'utente ha finito", nil),
	}
}
