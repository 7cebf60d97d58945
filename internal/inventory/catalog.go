package inventory

import (
	"strconv"
	"strings"
)

// Catalog is the ordered set of coupon types on sale.
type Catalog struct {
	types []string
	known map[string]struct{}
}

// NewCatalog builds a catalog from type keys, dropping blanks and duplicates.
func NewCatalog(types []string) *Catalog {
	c := &Catalog{known: make(map[string]struct{}, len(types))}
	for _, t := range types {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := c.known[t]; dup {
			continue
		}
		c.known[t] = struct{}{}
		c.types = append(c.types, t)
	}
	return c
}

// Types returns the coupon type keys in display order.
func (c *Catalog) Types() []string {
	out := make([]string, len(c.types))
	copy(out, c.types)
	return out
}

// Has reports whether the type is on sale.
func (c *Catalog) Has(couponType string) bool {
	_, ok := c.known[couponType]
	return ok
}

// Label renders a type key for display: whole thousands become "1K", "2K".
func (c *Catalog) Label(couponType string) string {
	n, err := strconv.ParseInt(couponType, 10, 64)
	if err != nil || n < 1000 || n%1000 != 0 {
		return couponType
	}
	return strconv.FormatInt(n/1000, 10) + "K"
}
