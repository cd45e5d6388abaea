package catalog_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/aiva/backend/internal/model/catalog"
)

func seed(t *testing.T) *catalog.MemoryStore {
	t.Helper()
	store, err := catalog.Seed()
	require.NoError(t, err)
	require.NotEmpty(t, store.List())
	return store
}

func TestSeedProductByID(t *testing.T) {
	store := seed(t)

	p, ok, err := store.ProductByID(context.Background(), "550e8400-0007-41d4-a716-446655440007")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Felpa con Cappuccio Oversize", p.Name)
	assert.Equal(t, catalog.CategoryFelpa, p.Category)
	assert.Len(t, p.Variants, 7)

	_, ok, err = store.ProductByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSearchScoresByTerms(t *testing.T) {
	store := seed(t)

	got, err := store.Search(context.Background(), "felpa cappuccio", nil, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Felpa con Cappuccio Oversize", got[0].Name)
}

func TestSearchToleratesPlurals(t *testing.T) {
	store := seed(t)

	got, err := store.Search(context.Background(), "felpe", nil, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, p := range got {
		assert.Equal(t, catalog.CategoryFelpa, p.Category)
	}
}

func TestSearchAppliesFilters(t *testing.T) {
	store := seed(t)
	onSale := true

	got, err := store.Search(context.Background(), "", &catalog.Filters{
		Category: "felpa",
		Color:    "nero",
		OnSale:   &onSale,
	}, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "550e8400-0007-41d4-a716-446655440007", got[0].ID)
}

func TestSearchGenderIncludesUnisex(t *testing.T) {
	store := seed(t)

	got, err := store.Search(context.Background(), "", &catalog.Filters{Category: "felpa", Gender: "uomo"}, 0)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = store.Search(context.Background(), "", &catalog.Filters{Category: "felpa", Gender: "donna"}, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "unisex", got[0].Gender)
}

func TestSearchSizeRequiresAvailability(t *testing.T) {
	store := seed(t)

	got, err := store.Search(context.Background(), "vintage", &catalog.Filters{Category: "felpa", Size: "XL"}, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearchPriceRange(t *testing.T) {
	store := seed(t)
	maxPrice := 30.0

	got, err := store.Search(context.Background(), "", &catalog.Filters{MaxPrice: &maxPrice}, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "T-Shirt Basic Cotone Bio", got[0].Name)
}

func TestSizeGuideFallsBackToTShirt(t *testing.T) {
	store := seed(t)
	ctx := context.Background()

	guide, err := store.SizeGuide(ctx, "scarpe")
	require.NoError(t, err)
	assert.Equal(t, "41-42", guide["uomo"]["M"])

	guide, err = store.SizeGuide(ctx, "jeans")
	require.NoError(t, err)
	assert.Equal(t, "48", guide["uomo"]["M"])

	guide, err = store.SizeGuide(ctx, "qualcosa")
	require.NoError(t, err)
	assert.Equal(t, "48-50", guide["uomo"]["M"])
}

func TestLoadFileRejectsIncompleteProducts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("products:\n  - name: senza id\n"), 0o600))

	_, err := catalog.LoadFile(path)
	assert.Error(t, err)

	_, err = catalog.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSizeRank(t *testing.T) {
	assert.Equal(t, 0, catalog.SizeRank("xs"))
	assert.Equal(t, 5, catalog.SizeRank(" XXL "))
	assert.False(t, catalog.IsSize("XXXL"))
}

func TestAvailability(t *testing.T) {
	store := seed(t)
	ctx := context.Background()
	felpa := "550e8400-0007-41d4-a716-446655440007"

	available, found, err := store.Availability(ctx, felpa, "m", "NERO")
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, available)

	available, found, err = store.Availability(ctx, felpa, "M", "fucsia")
	require.NoError(t, err)
	assert.True(t, found)
	assert.False(t, available)

	_, found, err = store.Availability(ctx, "missing", "M", "Nero")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRecommend(t *testing.T) {
	store := seed(t)
	ctx := context.Background()

	ids := func(ps []catalog.Product) []string {
		out := make([]string, 0, len(ps))
		for _, p := range ps {
			out = append(out, p.ID)
		}
		return out
	}

	tests := []struct {
		name  string
		query catalog.RecommendQuery
		want  []string
	}{
		{
			name:  "t-shirt pairs with trousers and shoes",
			query: catalog.RecommendQuery{ProductID: "550e8400-0001-41d4-a716-446655440001"},
			want:  []string{"550e8400-0012-41d4-a716-446655440012", "550e8400-0021-41d4-a716-446655440021"},
		},
		{
			name:  "shoes pair with accessories then siblings",
			query: catalog.RecommendQuery{ProductID: "550e8400-0022-41d4-a716-446655440022"},
			want:  []string{"550e8400-0025-41d4-a716-446655440025"},
		},
		{
			name:  "category",
			query: catalog.RecommendQuery{Category: "felpa"},
			want:  []string{"550e8400-0007-41d4-a716-446655440007", "550e8400-0008-41d4-a716-446655440008"},
		},
		{
			name:  "style",
			query: catalog.RecommendQuery{Style: "elegante", Limit: 2},
			want:  []string{"550e8400-0005-41d4-a716-446655440005", "550e8400-0014-41d4-a716-446655440014"},
		},
		{
			name:  "best sellers by reviews",
			query: catalog.RecommendQuery{},
			want: []string{
				"550e8400-0012-41d4-a716-446655440012",
				"550e8400-0007-41d4-a716-446655440007",
				"550e8400-0021-41d4-a716-446655440021",
			},
		},
		{
			name:  "unknown product",
			query: catalog.RecommendQuery{ProductID: "missing"},
			want:  []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Recommend(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestShippingAndPromotions(t *testing.T) {
	store := seed(t)
	ctx := context.Background()

	info, err := store.Shipping(ctx)
	require.NoError(t, err)
	assert.Equal(t, catalog.DefaultShipping, info)

	promos, err := store.Promotions(ctx)
	require.NoError(t, err)
	require.Len(t, promos, 3)
	assert.Equal(t, "Saldi Invernali", promos[0].Title)

	bare := catalog.NewMemoryStore(nil, nil)
	info, err = bare.Shipping(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100.0, info.FreeThreshold)
	promos, err = bare.Promotions(ctx)
	require.NoError(t, err)
	assert.Empty(t, promos)
}
