// Package domain contains the core business entities and interfaces.
package domain

import (
	"strconv"
	"strings"
)

// Property is a listing in the demo catalog.
type Property struct {
	Address string `json:"address"`
	Beds    int    `json:"beds"`
	Baths   int    `json:"baths"`
	Sqft    int    `json:"sqft"`
	Price   int    `json:"price"`
	Image   string `json:"image"`
}

var catalog = [...]Property{
	{Address: "123 Main Street", Beds: 3, Baths: 2, Sqft: 1850, Price: 725000, Image: "/pos-house1.png"},
	{Address: "456 Oak Avenue", Beds: 4, Baths: 3, Sqft: 2450, Price: 895000, Image: "/pos-house2.png"},
	{Address: "789 Pine Drive", Beds: 2, Baths: 2, Sqft: 1650, Price: 625000, Image: "/pos-house3.png"},
	{Address: "321 Elm Court", Beds: 5, Baths: 4, Sqft: 3200, Price: 1250000, Image: "/pos-house4.png"},
}

// Catalog returns a copy of the fixed listing catalog.
func Catalog() []Property {
	out := make([]Property, len(catalog))
	copy(out, catalog[:])
	return out
}

// CatalogSize is the number of listings in the catalog.
const CatalogSize = len(catalog)

// PropertyAt returns the listing at index i.
func PropertyAt(i int) (Property, bool) {
	if i < 0 || i >= len(catalog) {
		return Property{}, false
	}
	return catalog[i], true
}

// MatchProperty resolves a selection reply to a catalog index. The reply
// matches when it is exactly the 1-based index or contains an address,
// case-insensitively.
func MatchProperty(input string) (int, bool) {
	trimmed := strings.TrimSpace(input)
	lower := strings.ToLower(trimmed)
	for i, p := range catalog {
		if lower == strconv.Itoa(i+1) ||
			strings.Contains(lower, strings.ToLower(p.Address)) ||
			trimmed == p.Address {
			return i, true
		}
	}
	return -1, false
}

// FormattedPrice renders the price as "$725,000".
func (p Property) FormattedPrice() string {
	return "$" + Thousands(p.Price)
}

// FormattedSqft renders the square footage as "1,850".
func (p Property) FormattedSqft() string {
	return Thousands(p.Sqft)
}

// Thousands formats n with comma separators.
func Thousands(n int) string {
	s := strconv.Itoa(n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
