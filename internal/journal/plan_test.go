package journal

import (
	"testing"

	"github.com/lehigh-university-libraries/cardpress/internal/cardname"
	"github.com/lehigh-university-libraries/cardpress/internal/workspace"
	"github.com/stretchr/testify/assert"
)

func entry(seq int, order, category string) workspace.Entry {
	return workspace.Entry{
		Name:     cardname.Name{Order: order, Category: category},
		Filename: order + "_" + category,
		Seq:      seq,
	}
}

func orders(entries []workspace.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Order)
	}
	return out
}

func TestSortCards(t *testing.T) {
	cards := []workspace.Entry{
		entry(0, "10", "A"),
		entry(1, "2", "A"),
		entry(2, "x", "A"),
		entry(3, "2", "B"),
		entry(4, "1.5", "A"),
		entry(5, "-1", "A"),
	}
	sorted := SortCards(cards)
	assert.Equal(t, []string{"-1", "1.5", "2", "2", "10", "x"}, orders(sorted))
	// ties keep listing order
	assert.Equal(t, "A", sorted[2].Category)
	assert.Equal(t, "B", sorted[3].Category)
	// input untouched
	assert.Equal(t, "10", cards[0].Order)
}

func TestGroupByCategory(t *testing.T) {
	cards := []workspace.Entry{
		entry(0, "1", "A"),
		entry(1, "2", "A"),
		entry(2, "3", "B"),
		entry(3, "4", "A"),
	}
	groups := GroupByCategory(cards)
	if assert.Len(t, groups, 3) {
		assert.Equal(t, "A", groups[0].Category)
		assert.Len(t, groups[0].Cards, 2)
		assert.Equal(t, "B", groups[1].Category)
		assert.Equal(t, "A", groups[2].Category)
	}
	for _, g := range groups {
		for _, c := range g.Cards {
			assert.Equal(t, g.Category, c.Category)
		}
	}
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name     string
		count    int
		capacity int
		pages    int
		rows     []int
	}{
		{name: "single card", count: 1, capacity: 15, pages: 1, rows: []int{1}},
		{name: "partial last row", count: 7, capacity: 15, pages: 1, rows: []int{3}},
		{name: "exactly full", count: 15, capacity: 15, pages: 1, rows: []int{5}},
		{name: "spills over", count: 31, capacity: 15, pages: 3, rows: []int{5, 5, 1}},
		{name: "small capacity", count: 5, capacity: 4, pages: 2, rows: []int{2, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cards []workspace.Entry
			for i := range tt.count {
				cards = append(cards, entry(i, "1", "A"))
			}
			pages := Paginate(GroupByCategory(cards), tt.capacity, 3)
			assert.Len(t, pages, tt.pages)
			for i, p := range pages {
				assert.Equal(t, i+1, p.Index)
				assert.Equal(t, "A", p.Category)
				assert.Equal(t, tt.rows[i], p.Rows)
				assert.LessOrEqual(t, len(p.Cards), tt.capacity)
			}
		})
	}
}

func TestPaginateNeverMixesCategories(t *testing.T) {
	cards := []workspace.Entry{
		entry(0, "1", "A"),
		entry(1, "2", "B"),
		entry(2, "3", "B"),
	}
	pages := Paginate(GroupByCategory(cards), 15, 3)
	if assert.Len(t, pages, 2) {
		assert.Len(t, pages[0].Cards, 1)
		assert.Len(t, pages[1].Cards, 2)
	}
}
