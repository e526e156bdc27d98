package quote

import (
	"errors"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"procure/internal"
)

type Preference string

const (
	PreferenceCost      Preference = "cost"
	PreferenceInventory Preference = "inventory"
	PreferenceDelivery  Preference = "delivery"
)

// ErrInsufficientStock means the matching sellers together cannot cover the
// requested quantity; no partial allocation is ever returned.
var ErrInsufficientStock = errors.New("insufficient aggregate stock for requested quantity")

// ErrInvalidQuantity rejects allocation requests for fewer than one unit.
var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// NormalizePreference maps user input onto a known preference. The demo UI
// historically submitted "stock" for the inventory option; anything
// unrecognized falls back to cost.
func NormalizePreference(input string) Preference {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "inventory", "stock":
		return PreferenceInventory
	case "delivery", "shipping":
		return PreferenceDelivery
	default:
		return PreferenceCost
	}
}

// Rank orders quotes by the chosen preference: cost ascending by total,
// inventory descending by stock, delivery ascending by days. The sort is
// stable, so ties keep catalog insertion order. The input is not modified.
func Rank(quotes []internal.Quote, pref Preference) []internal.Quote {
	out := make([]internal.Quote, len(quotes))
	copy(out, quotes)

	switch pref {
	case PreferenceInventory:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Stock > out[j].Stock })
	case PreferenceDelivery:
		sort.SliceStable(out, func(i, j int) bool { return out[i].DeliveryDays < out[j].DeliveryDays })
	default:
		sort.SliceStable(out, func(i, j int) bool { return out[i].TotalCost.LessThan(out[j].TotalCost) })
	}
	return out
}

// Allocate splits quantity across sellers, cheapest unit price first, taking
// min(remaining, stock) from each. Either every unit is covered or the whole
// attempt fails with ErrInsufficientStock.
func Allocate(quotes []internal.Quote, quantity int) (internal.Allocation, error) {
	if quantity < 1 {
		return internal.Allocation{}, ErrInvalidQuantity
	}

	byPrice := make([]internal.Quote, len(quotes))
	copy(byPrice, quotes)
	sort.SliceStable(byPrice, func(i, j int) bool {
		return byPrice[i].UnitPrice.LessThan(byPrice[j].UnitPrice)
	})

	remaining := quantity
	lines := make([]internal.AllocationLine, 0, len(byPrice))
	combined := decimal.Zero

	for _, q := range byPrice {
		if remaining <= 0 {
			break
		}
		take := remaining
		if q.Stock < take {
			take = q.Stock
		}
		if take <= 0 {
			continue
		}
		cost := q.UnitPrice.Mul(decimal.NewFromInt(int64(take)))
		lines = append(lines, internal.AllocationLine{
			SellerName: q.SellerName,
			SKU:        q.SKU,
			Quantity:   take,
			UnitPrice:  q.UnitPrice,
			Cost:       cost,
		})
		combined = combined.Add(cost)
		remaining -= take
	}

	if remaining > 0 {
		return internal.Allocation{}, ErrInsufficientStock
	}

	return internal.Allocation{Lines: lines, CombinedCost: combined}, nil
}
