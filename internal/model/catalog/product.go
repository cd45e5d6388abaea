package catalog

import "strings"

// Canonical categories understood by the assistant.
const (
	CategoryTShirt    = "t-shirt"
	CategoryCamicia   = "camicia"
	CategoryMaglione  = "maglione"
	CategoryFelpa     = "felpa"
	CategoryGiacca    = "giacca"
	CategoryPantaloni = "pantaloni"
	CategoryShorts    = "shorts"
	CategoryGonna     = "gonna"
	CategoryVestito   = "vestito"
	CategoryScarpe    = "scarpe"
	CategoryAccessori = "accessori"
)

// Sizes lists the canonical size enum in ascending order.
var Sizes = []string{"XS", "S", "M", "L", "XL", "XXL"}

// SizeRank returns the position of size in Sizes, or -1.
func SizeRank(size string) int {
	upper := strings.ToUpper(strings.TrimSpace(size))
	for i, s := range Sizes {
		if s == upper {
			return i
		}
	}
	return -1
}

// IsSize reports whether size belongs to the canonical enum.
func IsSize(size string) bool {
	return SizeRank(size) >= 0
}

// Variant is one purchasable size/colour combination of a product.
type Variant struct {
	Size      string `json:"size" yaml:"size"`
	Color     string `json:"color" yaml:"color"`
	ColorCode string `json:"colorCode,omitempty" yaml:"color_code"`
	Available bool   `json:"available" yaml:"available"`
	Stock     int    `json:"stock" yaml:"stock"`
}

// Product is a catalog entry as exposed to the frontend and the assistant.
type Product struct {
	ID                 string    `json:"id" yaml:"id"`
	Name               string    `json:"name" yaml:"name"`
	Brand              string    `json:"brand" yaml:"brand"`
	Description        string    `json:"description" yaml:"description"`
	DescriptionLong    string    `json:"descriptionLong,omitempty" yaml:"description_long"`
	Category           string    `json:"category" yaml:"category"`
	Subcategory        string    `json:"subcategory,omitempty" yaml:"subcategory"`
	Gender             string    `json:"gender" yaml:"gender"`
	Price              float64   `json:"price" yaml:"price"`
	OriginalPrice      float64   `json:"originalPrice" yaml:"original_price"`
	DiscountPercentage int       `json:"discountPercentage" yaml:"discount_percentage"`
	OnSale             bool      `json:"onSale" yaml:"on_sale"`
	Reviews            int       `json:"reviews" yaml:"reviews"`
	Materials          []string  `json:"materials,omitempty" yaml:"materials"`
	Season             string    `json:"season,omitempty" yaml:"season"`
	Style              string    `json:"style,omitempty" yaml:"style"`
	Variants           []Variant `json:"variants" yaml:"variants"`
	Features           []string  `json:"features,omitempty" yaml:"features"`
	Tags               []string  `json:"tags,omitempty" yaml:"tags"`
}

// Filters narrows a catalog search. Zero values are ignored.
type Filters struct {
	Category string   `json:"category,omitempty"`
	Gender   string   `json:"gender,omitempty"`
	Size     string   `json:"size,omitempty"`
	Color    string   `json:"color,omitempty"`
	Brand    string   `json:"brand,omitempty"`
	Style    string   `json:"style,omitempty"`
	MinPrice *float64 `json:"min_price,omitempty"`
	MaxPrice *float64 `json:"max_price,omitempty"`
	OnSale   *bool    `json:"on_sale,omitempty"`
}

// SizeGuide maps gender to size to measurement range.
type SizeGuide map[string]map[string]string

// ShippingInfo holds the store's delivery terms.
type ShippingInfo struct {
	FreeThreshold float64 `json:"free_shipping_threshold" yaml:"free_threshold"`
	Standard      float64 `json:"standard_shipping" yaml:"standard_price"`
	Express       float64 `json:"express_shipping" yaml:"express_price"`
	StandardDays  string  `json:"delivery_time_standard" yaml:"standard_days"`
	ExpressDays   string  `json:"delivery_time_express" yaml:"express_days"`
}

// DefaultShipping applies when a catalog file carries no shipping section.
var DefaultShipping = ShippingInfo{
	FreeThreshold: 100,
	Standard:      9.90,
	Express:       19.90,
	StandardDays:  "3-5 giorni lavorativi",
	ExpressDays:   "1-2 giorni lavorativi",
}

// Promotion is a store-wide campaign shown on the offers page.
type Promotion struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	ValidUntil  string `json:"valid_until" yaml:"valid_until"`
}

// RecommendQuery selects the recommendation strategy. ProductID wins over
// Category, which wins over Style; with none set best sellers are returned.
type RecommendQuery struct {
	ProductID string
	Category  string
	Style     string
	Limit     int
}
