package catalog

import (
	"slices"
	"strings"

	"github.com/go-faster/errors"
)

type SortOrder string

const (
	SortAscending  SortOrder = "asc"
	SortDescending SortOrder = "desc"
)

var ErrBadSortOrder = errors.New("bad sort order")

// ParseSortOrder maps user input to a SortOrder. Empty input is ascending.
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "ascending":
		return SortAscending, nil
	case "desc", "descending":
		return SortDescending, nil
	}
	return "", errors.Wrapf(ErrBadSortOrder, "%q", s)
}

// SortByPrice returns a copy of products stably ordered by price. Any order
// other than SortDescending sorts ascending.
func SortByPrice(products []Product, order SortOrder) []Product {
	out := slices.Clone(products)
	if out == nil {
		out = []Product{}
	}
	slices.SortStableFunc(out, func(a, b Product) int {
		c := a.Price.Cmp(b.Price)
		if order == SortDescending {
			return -c
		}
		return c
	})
	return out
}

// filterText keeps products whose title or description contains query,
// ignoring case.
func filterText(products []Product, query string) []Product {
	q := strings.ToLower(query)
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Title), q) ||
			strings.Contains(strings.ToLower(p.Description), q) {
			out = append(out, p)
		}
	}
	return out
}
