package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/aiva/backend/internal/model/catalog"
)

func TestPreferencesMergeLastWriteWins(t *testing.T) {
	limit := 80.0
	base := Preferences{Size: "M", Color: "nero"}

	merged := base.Merge(Preferences{Color: "bianco", Gender: "donna", MaxPrice: &limit})

	assert.Equal(t, "M", merged.Size)
	assert.Equal(t, "bianco", merged.Color)
	assert.Equal(t, "donna", merged.Gender)
	require.NotNil(t, merged.MaxPrice)
	assert.Equal(t, 80.0, *merged.MaxPrice)
	assert.Equal(t, "nero", base.Color, "merge must not mutate the receiver")

	limit = 10
	assert.Equal(t, 80.0, *merged.MaxPrice)
}

func TestApplyUnionsFilters(t *testing.T) {
	c := New("s1", time.Now())
	page := "prodotti"
	c.Apply(Update{CurrentPage: &page, Filters: map[string]any{"category": "felpa", "color": "nero"}})
	c.Apply(Update{Filters: map[string]any{"color": "bianco", "category": nil}})

	assert.Equal(t, "prodotti", c.CurrentPage)
	assert.Equal(t, map[string]any{"color": "bianco"}, c.Filters)
}

func TestApplyProductSnapshot(t *testing.T) {
	c := New("s1", time.Now())
	c.Apply(Update{CurrentProduct: &ProductSnapshot{ID: "p1", Name: "Felpa"}})
	require.NotNil(t, c.CurrentProduct)
	assert.Equal(t, "p1", c.CurrentProduct.ID)

	c.Apply(Update{ClearProduct: true})
	assert.Nil(t, c.CurrentProduct)
}

func TestCloneIsDeep(t *testing.T) {
	c := New("s1", time.Now())
	c.CurrentProduct = SnapshotOf(catalog.Product{
		ID:       "p1",
		Name:     "Felpa",
		Variants: []catalog.Variant{{Size: "M", Color: "Nero", Available: true}},
	})
	c.Filters = map[string]any{"color": "nero"}
	c.AppendTurn("user", "ciao", time.Now())

	clone := c.Clone()
	clone.CurrentProduct.Variants[0].Color = "Bianco"
	clone.Filters["color"] = "bianco"
	clone.History[0].Content = "changed"

	assert.Equal(t, "Nero", c.CurrentProduct.Variants[0].Color)
	assert.Equal(t, "nero", c.Filters["color"])
	assert.Equal(t, "ciao", c.History[0].Content)
}

func TestAppendTurnTrimsHistory(t *testing.T) {
	c := New("s1", time.Now())
	for i := 0; i < MaxHistory+5; i++ {
		c.AppendTurn("user", "msg", time.Now())
	}
	c.AppendTurn("assistant", "", time.Now())

	assert.Len(t, c.History, MaxHistory)
	assert.Len(t, c.RecentHistory(3), 3)
	assert.Nil(t, c.RecentHistory(0))
}
