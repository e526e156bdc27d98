package quote

import (
	"testing"

	"github.com/shopspring/decimal"

	"procure/internal"
)

func rec(seller, item, sku string, price float64, stock, days int) internal.ProductRecord {
	return internal.ProductRecord{
		SellerName:   seller,
		ItemName:     item,
		SKU:          sku,
		UnitPrice:    decimal.NewFromFloat(price),
		Stock:        stock,
		DeliveryDays: days,
	}
}

func demoCatalog() []internal.ProductRecord {
	return []internal.ProductRecord{
		rec("Acme Computers", "Laptop i7 16GB", "LAP-I7-16", 1200, 50, 5),
		rec("Acme Computers", "Desktop Ryzen 7", "DES-R7-32", 900, 30, 3),
		rec("Global Tech", "Laptop i7 16GB", "LAP-I7-16-G", 1150, 10, 2),
		rec("Global Tech", "4K Monitor 27in", "MON-4K-27", 300, 100, 7),
	}
}

func TestSearchMatchesNameAndSKU(t *testing.T) {
	catalog := demoCatalog()

	byName := Search(catalog, "laptop", 5)
	if len(byName) != 2 {
		t.Fatalf("expected 2 laptop quotes, got %d", len(byName))
	}
	for _, q := range byName {
		want := q.UnitPrice.Mul(decimal.NewFromInt(5))
		if !q.TotalCost.Equal(want) {
			t.Errorf("%s: total %s, want %s", q.SellerName, q.TotalCost, want)
		}
		if q.QuantityRequested != 5 {
			t.Errorf("%s: quantity %d, want 5", q.SellerName, q.QuantityRequested)
		}
	}

	bySKU := Search(catalog, "mon-4k", 1)
	if len(bySKU) != 1 || bySKU[0].SellerName != "Global Tech" {
		t.Fatalf("sku search: got %+v", bySKU)
	}
}

func TestSearchExcludesInsufficientStock(t *testing.T) {
	quotes := Search(demoCatalog(), "laptop", 20)
	if len(quotes) != 1 {
		t.Fatalf("expected only the 50-stock seller, got %d quotes", len(quotes))
	}
	if quotes[0].SellerName != "Acme Computers" {
		t.Fatalf("got seller %q", quotes[0].SellerName)
	}
}

func TestSearchNoMatch(t *testing.T) {
	if quotes := Search(demoCatalog(), "projector", 1); len(quotes) != 0 {
		t.Fatalf("expected no quotes, got %d", len(quotes))
	}
}
