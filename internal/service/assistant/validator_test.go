package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/aiva/backend/internal/model/action"
)

func first(int) int { return 0 }

func TestValidateAddToCartDefaults(t *testing.T) {
	v := NewValidator(nil, first)

	params := map[string]any{"product_id": "p-1"}
	require.NoError(t, v.Validate("add_to_cart", params, "aggiungilo"))
	assert.Equal(t, map[string]any{"product_id": "p-1", "size": "M", "color": "nero", "quantity": 1}, params)
}

func TestValidateAddToCartQuantity(t *testing.T) {
	v := NewValidator(nil, first)

	cases := []struct {
		in   any
		want int
	}{
		{float64(3), 3},
		{float64(15), 1},
		{float64(0), 1},
		{2.5, 1},
		{"4", 4},
		{"tanti", 1},
		{nil, 1},
	}
	for _, tc := range cases {
		params := map[string]any{"product_id": "p-1", "quantity": tc.in, "size": "xl", "color": "Bianco"}
		require.NoError(t, v.Validate("add_to_cart", params, ""))
		assert.Equal(t, tc.want, params["quantity"], "%v", tc.in)
		assert.Equal(t, "XL", params["size"])
		assert.Equal(t, "Bianco", params["color"])
	}
}

func TestValidateAddToCartRequiresProduct(t *testing.T) {
	v := NewValidator(nil, first)

	err := v.Validate("add_to_cart", map[string]any{"size": "M"}, "")
	assert.ErrorIs(t, err, ErrInvalidParameters)
}

func TestValidateUnknownAction(t *testing.T) {
	v := NewValidator(nil, first)

	err := v.Validate("drop_database", map[string]any{}, "")
	assert.ErrorIs(t, err, ErrUnknownAction)

	err = v.Validate("get_cart_summary", nil, "")
	assert.ErrorIs(t, err, ErrInvalidParameters)
}

func TestValidateSearchOverlaysFilters(t *testing.T) {
	v := NewValidator(nil, first)

	params := map[string]any{
		"query":   " felpa ",
		"filters": map[string]any{"color": "rosso"},
	}
	require.NoError(t, v.Validate("search_products", params, "felpe nere da donna in offerta"))

	assert.Equal(t, "felpa", params["query"])
	assert.Equal(t, map[string]any{"color": "rosso", "gender": "donna", "on_sale": true}, params["filters"])
}

func TestValidateSearchRequiresQuery(t *testing.T) {
	v := NewValidator(nil, first)

	assert.ErrorIs(t, v.Validate("search_products", map[string]any{}, ""), ErrInvalidParameters)

	long := map[string]any{"query": string(make([]rune, 101))}
	assert.ErrorIs(t, v.Validate("search_products", long, ""), ErrInvalidParameters)
}

func TestValidateNavigate(t *testing.T) {
	v := NewValidator(nil, first)

	cases := map[string]string{
		"pagina carrello": "carrello",
		"Cassa":           "checkout",
		"homepage":        "home",
		"saldi":           "offerte",
		"prodotti":        "prodotti",
	}
	for in, want := range cases {
		params := map[string]any{"page": in}
		require.NoError(t, v.Validate("navigate_to_page", params, ""), in)
		assert.Equal(t, want, params["page"], in)
	}

	err := v.Validate("navigate_to_page", map[string]any{"page": "spiaggia"}, "")
	assert.ErrorIs(t, err, ErrInvalidParameters)
}

func TestValidatePassThrough(t *testing.T) {
	v := NewValidator(nil, first)

	params := map[string]any{"item_id": "x", "anything": 1}
	require.NoError(t, v.Validate("remove_from_cart", params, ""))
	assert.Equal(t, map[string]any{"item_id": "x", "anything": 1}, params)
}

func TestMessageTemplates(t *testing.T) {
	second := func(int) int { return 1 }
	v := NewValidator(nil, second)

	msg := v.Message(action.AddToCart, map[string]any{"size": "L", "color": "bianco"})
	assert.Equal(t, "Lo metto subito nel carrello: taglia L, colore bianco.", msg)

	// unresolved placeholders leave the template untouched
	v = NewValidator(nil, first)
	assert.Equal(t, "Cerco {query} nel nostro catalogo...", v.Message(action.SearchProducts, map[string]any{}))
	assert.Equal(t, "Cerco jeans nel nostro catalogo...", v.Message(action.SearchProducts, map[string]any{"query": "jeans"}))
	assert.Equal(t, "Elaboro la tua richiesta.", v.Message("sconosciuta", nil))
}

func TestMessageRandomPickStaysInRange(t *testing.T) {
	v := NewValidator(nil, nil)
	for i := 0; i < 50; i++ {
		assert.NotEmpty(t, v.Message(action.NavigateToPage, map[string]any{"page": "home"}))
	}
}

func TestCanonicalPage(t *testing.T) {
	page, ok := CanonicalPage("Pagina Iniziale")
	assert.True(t, ok)
	assert.Equal(t, "home", page)

	_, ok = CanonicalPage("")
	assert.False(t, ok)
}
