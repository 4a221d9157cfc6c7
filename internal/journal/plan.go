package journal

import (
	"cmp"
	"slices"

	"github.com/lehigh-university-libraries/cardpress/internal/cardname"
	"github.com/lehigh-university-libraries/cardpress/internal/workspace"
)

// Group is a maximal run of consecutive cards sharing a category.
type Group struct {
	Category string
	Cards    []workspace.Entry
}

// Page is one composite page: a slice of a single group.
type Page struct {
	Index    int
	Category string
	Cards    []workspace.Entry
	Rows     int
}

// SortCards orders cards by their leading numeric order. Ties, and
// non-numeric orders (which sort last), keep directory-listing order.
func SortCards(cards []workspace.Entry) []workspace.Entry {
	sorted := slices.Clone(cards)
	slices.SortStableFunc(sorted, func(a, b workspace.Entry) int {
		ka, aok := cardname.OrderKey(a.Order)
		kb, bok := cardname.OrderKey(b.Order)
		switch {
		case aok && !bok:
			return -1
		case !aok && bok:
			return 1
		case aok && bok:
			if c := cmp.Compare(ka, kb); c != 0 {
				return c
			}
		}
		return cmp.Compare(a.Seq, b.Seq)
	})
	return sorted
}

// GroupByCategory closes a group on every category change, even when the
// same category shows up again later.
func GroupByCategory(cards []workspace.Entry) []Group {
	var groups []Group
	for _, c := range cards {
		if n := len(groups); n > 0 && groups[n-1].Category == c.Category {
			groups[n-1].Cards = append(groups[n-1].Cards, c)
			continue
		}
		groups = append(groups, Group{Category: c.Category, Cards: []workspace.Entry{c}})
	}
	return groups
}

// Paginate splits each group into pages of at most capacity cards.
func Paginate(groups []Group, capacity, columns int) []Page {
	if capacity < 1 {
		capacity = 1
	}
	if columns < 1 {
		columns = 1
	}
	var pages []Page
	for _, g := range groups {
		for start := 0; start < len(g.Cards); start += capacity {
			end := min(start+capacity, len(g.Cards))
			cards := g.Cards[start:end]
			pages = append(pages, Page{
				Index:    len(pages) + 1,
				Category: g.Category,
				Cards:    cards,
				Rows:     ceilDiv(len(cards), columns),
			})
		}
	}
	return pages
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
