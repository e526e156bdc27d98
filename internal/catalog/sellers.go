package catalog

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"procure/internal"
)

// ValidationError names the seller entry and field that failed validation.
// A custom list is imported whole or not at all.
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("seller entry %d: field %q %s", e.Index, e.Field, e.Reason)
}

type sellerEntry struct {
	Name         string           `json:"name"`
	Seller       string           `json:"seller_name"`
	Item         string           `json:"item"`
	ItemName     string           `json:"item_name"`
	Price        *decimal.Decimal `json:"price"`
	UnitPrice    *decimal.Decimal `json:"unit_price"`
	Stock        *int             `json:"stock"`
	SKU          string           `json:"sku"`
	DeliveryDays *int             `json:"delivery_days"`
	Email        string           `json:"email"`
}

// ParseSellerList validates a user-submitted JSON seller array and converts it
// to product records. Both the short field names the demo UI used (name, item,
// price) and the canonical ones (seller_name, item_name, unit_price) are
// accepted. Missing SKUs are synthesized from the item name.
func ParseSellerList(data []byte) ([]internal.ProductRecord, error) {
	var entries []sellerEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("seller list is not a JSON array: %w", err)
	}
	if len(entries) == 0 {
		return nil, &ValidationError{Index: 0, Field: "(list)", Reason: "is empty"}
	}

	out := make([]internal.ProductRecord, 0, len(entries))
	for i, e := range entries {
		seller := firstNonEmpty(e.Seller, e.Name)
		if seller == "" {
			return nil, &ValidationError{Index: i, Field: "name", Reason: "is required"}
		}
		item := firstNonEmpty(e.ItemName, e.Item)
		if item == "" {
			return nil, &ValidationError{Index: i, Field: "item", Reason: "is required"}
		}

		price := e.UnitPrice
		if price == nil {
			price = e.Price
		}
		if price == nil {
			return nil, &ValidationError{Index: i, Field: "price", Reason: "is required"}
		}
		if price.IsNegative() {
			return nil, &ValidationError{Index: i, Field: "price", Reason: "must not be negative"}
		}

		stock := 0
		if e.Stock != nil {
			stock = *e.Stock
		}
		if stock < 0 {
			return nil, &ValidationError{Index: i, Field: "stock", Reason: "must not be negative"}
		}

		delivery := 7
		if e.DeliveryDays != nil {
			delivery = *e.DeliveryDays
		}
		if delivery < 0 {
			return nil, &ValidationError{Index: i, Field: "delivery_days", Reason: "must not be negative"}
		}

		sku := strings.TrimSpace(e.SKU)
		if sku == "" {
			sku = SynthesizeSKU(item, i+1)
		}

		out = append(out, internal.ProductRecord{
			SellerName:   seller,
			ItemName:     item,
			SKU:          sku,
			UnitPrice:    *price,
			Stock:        stock,
			DeliveryDays: delivery,
		})
	}
	return out, nil
}

var reSlug = regexp.MustCompile(`[^a-z0-9]+`)

// SynthesizeSKU builds a stable sku from an item name plus a positional
// suffix, for entries that arrive without one.
func SynthesizeSKU(item string, position int) string {
	slug := strings.Trim(reSlug.ReplaceAllString(strings.ToLower(item), "-"), "-")
	if len(slug) > 12 {
		slug = slug[:12]
	}
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "item"
	}
	return fmt.Sprintf("%s-%d", slug, position)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
