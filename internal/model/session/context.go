package session

import (
	"time"

	"github.com/zhouzirui/aiva/backend/internal/model/catalog"
)

// MaxHistory bounds the turns kept on a session.
const MaxHistory = 10

// ProductSnapshot is the part of a product the frontend reports as currently open.
type ProductSnapshot struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Description     string            `json:"description,omitempty"`
	DescriptionLong string            `json:"descriptionLong,omitempty"`
	Category        string            `json:"category,omitempty"`
	Variants        []catalog.Variant `json:"variants,omitempty"`
}

// SnapshotOf builds a ProductSnapshot from a catalog product.
func SnapshotOf(p catalog.Product) *ProductSnapshot {
	return &ProductSnapshot{
		ID:              p.ID,
		Name:            p.Name,
		Description:     p.Description,
		DescriptionLong: p.DescriptionLong,
		Category:        p.Category,
		Variants:        append([]catalog.Variant(nil), p.Variants...),
	}
}

// VisibleProduct is an entry of the product grid currently on screen.
type VisibleProduct struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Preferences are soft user preferences accumulated across turns.
type Preferences struct {
	Size     string   `json:"size,omitempty"`
	Color    string   `json:"color,omitempty"`
	Gender   string   `json:"gender,omitempty"`
	Style    string   `json:"style,omitempty"`
	MaxPrice *float64 `json:"max_price,omitempty"`
}

// Merge overlays every non-empty field of other onto p.
func (p Preferences) Merge(other Preferences) Preferences {
	if other.Size != "" {
		p.Size = other.Size
	}
	if other.Color != "" {
		p.Color = other.Color
	}
	if other.Gender != "" {
		p.Gender = other.Gender
	}
	if other.Style != "" {
		p.Style = other.Style
	}
	if other.MaxPrice != nil {
		v := *other.MaxPrice
		p.MaxPrice = &v
	}
	return p
}

// IsZero reports whether no preference has been recorded.
func (p Preferences) IsZero() bool {
	return p.Size == "" && p.Color == "" && p.Gender == "" && p.Style == "" && p.MaxPrice == nil
}

// Turn is one exchange kept for model context.
type Turn struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Context is the per-session state the assistant reads while resolving an
// utterance. It is written between utterances only.
type Context struct {
	SessionID       string           `json:"sessionId"`
	Version         int64            `json:"version"`
	CurrentPage     string           `json:"currentPage,omitempty"`
	CartCount       int              `json:"cartCount"`
	CurrentProduct  *ProductSnapshot `json:"currentProduct,omitempty"`
	VisibleProducts []VisibleProduct `json:"visibleProducts,omitempty"`
	Filters         map[string]any   `json:"filters,omitempty"`
	Preferences     Preferences      `json:"preferences"`
	History         []Turn           `json:"history,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// New returns an empty context for a session.
func New(id string, now time.Time) *Context {
	return &Context{
		SessionID:   id,
		CurrentPage: "home",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Clone returns a deep copy so resolutions never share mutable state.
func (c *Context) Clone() *Context {
	if c == nil {
		return nil
	}
	out := *c
	if c.CurrentProduct != nil {
		snap := *c.CurrentProduct
		snap.Variants = append([]catalog.Variant(nil), c.CurrentProduct.Variants...)
		out.CurrentProduct = &snap
	}
	out.VisibleProducts = append([]VisibleProduct(nil), c.VisibleProducts...)
	if c.Filters != nil {
		out.Filters = make(map[string]any, len(c.Filters))
		for k, v := range c.Filters {
			out.Filters[k] = v
		}
	}
	out.Preferences = Preferences{}.Merge(c.Preferences)
	out.History = append([]Turn(nil), c.History...)
	return &out
}

// AppendTurn records a turn and trims history to MaxHistory entries.
func (c *Context) AppendTurn(role, content string, at time.Time) {
	if content == "" {
		return
	}
	c.History = append(c.History, Turn{Role: role, Content: content, At: at})
	if len(c.History) > MaxHistory {
		c.History = append([]Turn(nil), c.History[len(c.History)-MaxHistory:]...)
	}
}

// RecentHistory returns at most n of the latest turns.
func (c *Context) RecentHistory(n int) []Turn {
	if n <= 0 || len(c.History) == 0 {
		return nil
	}
	if len(c.History) <= n {
		return c.History
	}
	return c.History[len(c.History)-n:]
}

// Update is a partial context sent by the frontend. Nil fields are left untouched.
type Update struct {
	CurrentPage     *string          `json:"currentPage,omitempty"`
	CartCount       *int             `json:"cartCount,omitempty"`
	CurrentProduct  *ProductSnapshot `json:"currentProduct,omitempty"`
	ClearProduct    bool             `json:"clearProduct,omitempty"`
	VisibleProducts []VisibleProduct `json:"visibleProducts,omitempty"`
	Filters         map[string]any   `json:"filters,omitempty"`
	Preferences     *Preferences     `json:"preferences,omitempty"`
}

// Apply merges u into c. Preferences and filters are unioned, last write wins per key.
func (c *Context) Apply(u Update) {
	if u.CurrentPage != nil {
		c.CurrentPage = *u.CurrentPage
	}
	if u.CartCount != nil {
		c.CartCount = *u.CartCount
	}
	if u.ClearProduct {
		c.CurrentProduct = nil
	}
	if u.CurrentProduct != nil {
		snap := *u.CurrentProduct
		c.CurrentProduct = &snap
	}
	if u.VisibleProducts != nil {
		c.VisibleProducts = append([]VisibleProduct(nil), u.VisibleProducts...)
	}
	if len(u.Filters) > 0 {
		if c.Filters == nil {
			c.Filters = make(map[string]any, len(u.Filters))
		}
		for k, v := range u.Filters {
			if v == nil {
				delete(c.Filters, k)
				continue
			}
			c.Filters[k] = v
		}
	}
	if u.Preferences != nil {
		c.Preferences = c.Preferences.Merge(*u.Preferences)
	}
}
