package live

import (
	"testing"

	"go-pos-terminal/internal/model"

	"github.com/stretchr/testify/assert"
)

func catalogFixture() []model.CatalogItem {
	no := false
	return []model.CatalogItem{
		{ID: "p1", Name: "Cheeseburger", Category: "Mains"},
		{ID: "p2", Name: "Fries", Category: "Sides"},
		{ID: "p3", Name: "Straße Burger", Category: "Mains", IsAvailable: &no},
		{ID: "p4", Name: "Napkin"},
	}
}

func names(items []model.CatalogItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}

func TestCategories(t *testing.T) {
	assert.Equal(t, []string{"Mains", "Sides", model.UncategorizedLabel}, Categories(catalogFixture()))
	assert.Empty(t, Categories(nil))
}

func TestFilterByCategory(t *testing.T) {
	items := catalogFixture()
	assert.Equal(t, []string{"Cheeseburger", "Straße Burger"}, names(FilterByCategory(items, "Mains")))
	assert.Equal(t, []string{"Napkin"}, names(FilterByCategory(items, model.UncategorizedLabel)))
	assert.Len(t, FilterByCategory(items, ""), 4)
	assert.Empty(t, FilterByCategory(items, "Drinks"))
}

func TestSearch(t *testing.T) {
	items := catalogFixture()
	assert.Equal(t, []string{"Cheeseburger", "Straße Burger"}, names(Search(items, "BURGER")))
	assert.Equal(t, []string{"Fries"}, names(Search(items, "fRiEs")))
	assert.Len(t, Search(items, "  "), 4)
}

func TestAvailable(t *testing.T) {
	assert.Equal(t, []string{"Cheeseburger", "Fries", "Napkin"}, names(Available(catalogFixture())))
}
