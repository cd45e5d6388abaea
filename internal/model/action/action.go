package action

// Name identifies one operation of the closed commerce action set.
type Name string

const (
	SearchProducts       Name = "search_products"
	GetProductDetails    Name = "get_product_details"
	AddToCart            Name = "add_to_cart"
	RemoveFromCart       Name = "remove_from_cart"
	RemoveLastCartItem   Name = "remove_last_cart_item"
	UpdateCartQuantity   Name = "update_cart_quantity"
	NavigateToPage       Name = "navigate_to_page"
	GetCartSummary       Name = "get_cart_summary"
	ClearCart            Name = "clear_cart"
	GetRecommendations   Name = "get_recommendations"
	GetSizeGuide         Name = "get_size_guide"
	GetCurrentPromotions Name = "get_current_promotions"
	GetShippingInfo      Name = "get_shipping_info"
	ApplyUIFilters       Name = "apply_ui_filters"
	CloseConversation    Name = "close_conversation"
)

// All lists every action in declaration order.
var All = []Name{
	SearchProducts,
	GetProductDetails,
	AddToCart,
	RemoveFromCart,
	RemoveLastCartItem,
	UpdateCartQuantity,
	NavigateToPage,
	GetCartSummary,
	ClearCart,
	GetRecommendations,
	GetSizeGuide,
	GetCurrentPromotions,
	GetShippingInfo,
	ApplyUIFilters,
	CloseConversation,
}

// Known reports whether name belongs to the closed action set.
func Known(name string) bool {
	for _, n := range All {
		if string(n) == name {
			return true
		}
	}
	return false
}

// Navigation destinations.
const (
	PageHome     = "home"
	PageProducts = "prodotti"
	PageOffers   = "offerte"
	PageCart     = "carrello"
	PageCheckout = "checkout"
)

// Pages lists the canonical navigation destinations.
var Pages = []string{PageHome, PageProducts, PageOffers, PageCart, PageCheckout}

// IsPage reports whether page is a canonical destination.
func IsPage(page string) bool {
	for _, p := range Pages {
		if p == page {
			return true
		}
	}
	return false
}

var quickResponses = map[Name]string{
	SearchProducts:       "Cerco subito quello che mi hai chiesto...",
	GetProductDetails:    "Ti mostro i dettagli...",
	AddToCart:            "Lo aggiungo al carrello...",
	RemoveFromCart:       "Lo tolgo dal carrello...",
	RemoveLastCartItem:   "Tolgo l'ultimo articolo...",
	UpdateCartQuantity:   "Aggiorno la quantità...",
	NavigateToPage:       "Ti porto subito lì...",
	GetCartSummary:       "Ecco il tuo carrello...",
	ClearCart:            "Svuoto il carrello...",
	GetRecommendations:   "Preparo dei suggerimenti per te...",
	GetSizeGuide:         "Ti mostro la guida taglie...",
	GetCurrentPromotions: "Ecco le nostre offerte...",
	GetShippingInfo:      "Controllo le spedizioni...",
	ApplyUIFilters:       "Applico i filtri...",
	CloseConversation:    "Va bene...",
}

// QuickResponse is the immediate acknowledgement shown while an action is prepared.
func QuickResponse(name Name) string {
	if msg, ok := quickResponses[name]; ok {
		return msg
	}
	return "Un attimo..."
}
