// Package quote covers the path from a resolved requirement to a finalized
// purchase order: candidate search, preference ranking, multi-seller
// allocation and PO assembly.
package quote

import (
	"strings"

	"github.com/shopspring/decimal"

	"procure/internal"
)

// Search filters catalog records down to quotes for the requested item:
// case-insensitive substring containment against the item name or sku, and
// enough stock to cover the full quantity. Records that fail either test are
// dropped silently; there are no partial-quantity quotes.
func Search(records []internal.ProductRecord, itemName string, quantity int) []internal.Quote {
	needle := strings.ToLower(strings.TrimSpace(itemName))
	if needle == "" {
		return nil
	}

	out := make([]internal.Quote, 0)
	for _, r := range records {
		if !strings.Contains(strings.ToLower(r.ItemName), needle) &&
			!strings.Contains(strings.ToLower(r.SKU), needle) {
			continue
		}
		if r.Stock < quantity {
			continue
		}
		out = append(out, internal.Quote{
			ProductRecord:     r,
			QuantityRequested: quantity,
			TotalCost:         r.UnitPrice.Mul(decimal.NewFromInt(int64(quantity))),
		})
	}
	return out
}
