package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zhouzirui/aiva/backend/internal/analysis/text"
)

//go:embed seed.yaml
var seedYAML []byte

const defaultGuide = "tshirt"

// Catalog exposes read-only product retrieval to the assistant.
type Catalog interface {
	Search(ctx context.Context, query string, filters *Filters, limit int) ([]Product, error)
	ProductByID(ctx context.Context, id string) (Product, bool, error)
	SizeGuide(ctx context.Context, category string) (SizeGuide, error)
	// Availability reports whether the size/colour variant can be bought.
	// found is false for an unknown product.
	Availability(ctx context.Context, productID, size, color string) (available, found bool, err error)
	Recommend(ctx context.Context, q RecommendQuery) ([]Product, error)
	Shipping(ctx context.Context) (ShippingInfo, error)
	Promotions(ctx context.Context) ([]Promotion, error)
}

// MemoryStore implements Catalog with an in-memory slice.
type MemoryStore struct {
	items      []Product
	guides     map[string]SizeGuide
	shipping   ShippingInfo
	promotions []Promotion
}

type seedFile struct {
	Products   []Product            `yaml:"products"`
	SizeGuides map[string]SizeGuide `yaml:"size_guides"`
	Shipping   *ShippingInfo        `yaml:"shipping"`
	Promotions []Promotion          `yaml:"promotions"`
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied products and guides.
func NewMemoryStore(items []Product, guides map[string]SizeGuide) *MemoryStore {
	copied := make(map[string]SizeGuide, len(guides))
	for k, v := range guides {
		copied[k] = v
	}
	return &MemoryStore{items: append([]Product(nil), items...), guides: copied, shipping: DefaultShipping}
}

// Seed returns the demo catalog bundled with the binary.
func Seed() (*MemoryStore, error) {
	return decode(strings.NewReader(string(seedYAML)))
}

// LoadFile reads a YAML catalog from path.
func LoadFile(path string) (*MemoryStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	defer f.Close()
	return decode(f)
}

func decode(r io.Reader) (*MemoryStore, error) {
	var file seedFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	for i, p := range file.Products {
		if p.ID == "" || p.Name == "" {
			return nil, fmt.Errorf("catalog product #%d: id and name are required", i)
		}
	}
	store := NewMemoryStore(file.Products, file.SizeGuides)
	if file.Shipping != nil {
		store.shipping = *file.Shipping
	}
	store.promotions = file.Promotions
	return store, nil
}

// List returns every product.
func (s *MemoryStore) List() []Product {
	return append([]Product(nil), s.items...)
}

// ProductByID looks up a product by identifier.
func (s *MemoryStore) ProductByID(_ context.Context, id string) (Product, bool, error) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true, nil
		}
	}
	return Product{}, false, nil
}

// Search scores products by how many query terms occur in their text, then
// applies filters. An empty query keeps catalog order.
func (s *MemoryStore) Search(_ context.Context, query string, filters *Filters, limit int) ([]Product, error) {
	terms := text.Tokens(query)

	type scored struct {
		product Product
		score   int
	}
	results := make([]scored, 0, len(s.items))
	for _, p := range s.items {
		if !matchesFilters(p, filters) {
			continue
		}
		if len(terms) == 0 {
			results = append(results, scored{product: p})
			continue
		}
		score := scoreProduct(p, terms)
		if score > 0 {
			results = append(results, scored{product: p, score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].score > results[j].score })

	if limit <= 0 || limit > len(results) {
		limit = len(results)
	}
	out := make([]Product, 0, limit)
	for _, r := range results[:limit] {
		out = append(out, r.product)
	}
	return out, nil
}

// SizeGuide returns the measurement table for category, defaulting to the t-shirt guide.
func (s *MemoryStore) SizeGuide(_ context.Context, category string) (SizeGuide, error) {
	key := strings.ReplaceAll(text.Normalize(category), " ", "")
	switch key {
	case "tshirt", "maglia", "maglietta", "camicia", "felpa", "maglione", "giacca":
		key = defaultGuide
	case "jeans", "shorts", "gonna":
		key = "pantaloni"
	}
	if guide, ok := s.guides[key]; ok {
		return guide, nil
	}
	if guide, ok := s.guides[defaultGuide]; ok {
		return guide, nil
	}
	return nil, fmt.Errorf("size guide for %q not available", category)
}

func (s *MemoryStore) Availability(ctx context.Context, productID, size, color string) (bool, bool, error) {
	p, ok, _ := s.ProductByID(ctx, productID)
	if !ok {
		return false, false, nil
	}
	want := text.Normalize(color)
	for _, v := range p.Variants {
		if strings.EqualFold(v.Size, size) && text.Normalize(v.Color) == want {
			return v.Available && v.Stock > 0, true, nil
		}
	}
	return false, true, nil
}

// complements lists the categories suggested next to a product, one pick each.
var complements = map[string][]string{
	CategoryTShirt:    {CategoryPantaloni, CategoryScarpe},
	CategoryPantaloni: {CategoryCamicia, CategoryScarpe},
	CategoryScarpe:    {CategoryAccessori, CategoryAccessori},
}

// Recommend pairs a product with complementary categories and same-gender
// siblings, or falls back to category, style and finally review count.
func (s *MemoryStore) Recommend(ctx context.Context, q RecommendQuery) ([]Product, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 3
	}

	switch {
	case q.ProductID != "":
		base, ok, err := s.ProductByID(ctx, q.ProductID)
		if err != nil || !ok {
			return nil, err
		}
		var out []Product
		seen := map[string]bool{base.ID: true}
		add := func(p Product) {
			if len(out) < limit && !seen[p.ID] {
				seen[p.ID] = true
				out = append(out, p)
			}
		}
		for _, category := range complements[base.Category] {
			for _, p := range s.items {
				if p.Category == category && !seen[p.ID] {
					add(p)
					break
				}
			}
		}
		for _, p := range s.items {
			if p.Category == base.Category && p.Gender == base.Gender {
				add(p)
			}
		}
		return out, nil
	case q.Category != "":
		return s.Search(ctx, "", &Filters{Category: q.Category}, limit)
	case q.Style != "":
		return s.Search(ctx, "", &Filters{Style: q.Style}, limit)
	}

	best := s.List()
	sort.SliceStable(best, func(i, j int) bool { return best[i].Reviews > best[j].Reviews })
	return best[:min(limit, len(best))], nil
}

func (s *MemoryStore) Shipping(context.Context) (ShippingInfo, error) {
	return s.shipping, nil
}

func (s *MemoryStore) Promotions(context.Context) ([]Promotion, error) {
	return append([]Promotion(nil), s.promotions...), nil
}

func scoreProduct(p Product, terms []string) int {
	haystack := text.Normalize(strings.Join([]string{
		p.Name, p.Brand, p.Description, p.Category, p.Subcategory, strings.Join(p.Tags, " "),
	}, " "))
	tags := text.Normalize(strings.Join(p.Tags, " "))

	score := 0
	for _, term := range terms {
		stem := term
		// tolerate Italian plural/gender endings: felpe -> felp, nere -> ner
		if len(term) > 4 {
			stem = term[:len(term)-1]
		}
		switch {
		case strings.Contains(haystack, term):
			score += 2
		case strings.Contains(haystack, stem) || strings.Contains(tags, stem):
			score++
		}
	}
	return score
}

func matchesFilters(p Product, f *Filters) bool {
	if f == nil {
		return true
	}
	if f.Category != "" {
		want := text.Normalize(f.Category)
		if text.Normalize(p.Category) != want && !strings.Contains(text.Normalize(p.Subcategory), want) {
			return false
		}
	}
	if f.Gender != "" && !strings.EqualFold(p.Gender, f.Gender) && !strings.EqualFold(p.Gender, "unisex") {
		return false
	}
	if f.Size != "" && !hasVariant(p, func(v Variant) bool { return strings.EqualFold(v.Size, f.Size) && v.Available }) {
		return false
	}
	if f.Color != "" {
		color := text.Normalize(f.Color)
		if !hasVariant(p, func(v Variant) bool { return strings.Contains(text.Normalize(v.Color), color) }) {
			return false
		}
	}
	if f.Brand != "" && !strings.Contains(text.Normalize(p.Brand), text.Normalize(f.Brand)) {
		return false
	}
	if f.Style != "" && !strings.Contains(text.Normalize(p.Style), text.Normalize(f.Style)) {
		return false
	}
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	if f.OnSale != nil && p.OnSale != *f.OnSale {
		return false
	}
	return true
}

func hasVariant(p Product, match func(Variant) bool) bool {
	for _, v := range p.Variants {
		if match(v) {
			return true
		}
	}
	return false
}
