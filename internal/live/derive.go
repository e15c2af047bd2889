package live

import (
	"sort"
	"strings"

	"go-pos-terminal/internal/model"

	"golang.org/x/text/cases"
)

// Categories returns the distinct categories in name order. Items without a
// category are grouped under model.UncategorizedLabel.
func Categories(items []model.CatalogItem) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0)
	for _, it := range items {
		c := it.CategoryOrDefault()
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// FilterByCategory keeps items of one category. An empty category keeps everything.
func FilterByCategory(items []model.CatalogItem, category string) []model.CatalogItem {
	if category == "" {
		return items
	}
	out := make([]model.CatalogItem, 0, len(items))
	for _, it := range items {
		if it.CategoryOrDefault() == category {
			out = append(out, it)
		}
	}
	return out
}

// Search keeps items whose name contains q, ignoring case
func Search(items []model.CatalogItem, q string) []model.CatalogItem {
	q = strings.TrimSpace(q)
	if q == "" {
		return items
	}
	fold := cases.Fold()
	needle := fold.String(q)

	out := make([]model.CatalogItem, 0, len(items))
	for _, it := range items {
		if strings.Contains(fold.String(it.Name), needle) {
			out = append(out, it)
		}
	}
	return out
}

func Available(items []model.CatalogItem) []model.CatalogItem {
	out := make([]model.CatalogItem, 0, len(items))
	for _, it := range items {
		if it.Purchasable() {
			out = append(out, it)
		}
	}
	return out
}
