package model

import "strings"

// SKU is one catalog entry with its server-computed review counts.
type SKU struct {
	SKUID    FlexString `json:"sku_id"`
	Total    int        `json:"total"`
	Approved int        `json:"approved"`
	Rejected int        `json:"rejected"`
	Pending  int        `json:"pending"`
}

// ID returns the SKU id as a plain string.
func (s SKU) ID() string { return s.SKUID.String() }

// FilterSKUs returns the SKUs whose id contains query, case-insensitively.
// Entries without an id never match. The input is not modified.
func FilterSKUs(skus []SKU, query string) []SKU {
	q := strings.ToLower(query)
	out := make([]SKU, 0, len(skus))
	for _, s := range skus {
		id := s.ID()
		if id == "" {
			continue
		}
		if strings.Contains(strings.ToLower(id), q) {
			out = append(out, s)
		}
	}
	return out
}

// IndexOfSKU returns the position of id in skus, or -1.
func IndexOfSKU(skus []SKU, id string) int {
	for i, s := range skus {
		if s.ID() == id {
			return i
		}
	}
	return -1
}
