package catalog

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"procure/internal"
)

func TestStoreAppendAndAll(t *testing.T) {
	s := NewStore()
	s.Append(internal.ProductRecord{SellerName: "A", ItemName: "Widget", SKU: "w-1", UnitPrice: decimal.NewFromInt(5), Stock: 3})
	s.Append(internal.ProductRecord{SellerName: "B", ItemName: "Widget", SKU: "w-1", UnitPrice: decimal.NewFromInt(4), Stock: 9})

	all := s.All()
	if len(all) != 2 {
		t.Fatalf("len=%d", len(all))
	}
	if all[0].SellerName != "A" || all[1].SellerName != "B" {
		t.Fatalf("insertion order lost: %+v", all)
	}

	// mutating the returned slice must not touch store state
	all[0].SellerName = "mutated"
	if s.All()[0].SellerName != "A" {
		t.Fatal("All returned a live reference")
	}
}

func TestStoreNamesDeduped(t *testing.T) {
	s := NewSeededStore()
	names := s.Names()
	want := []string{"Laptop i7 16GB", "Desktop i5 8GB", "4K Monitor"}
	if len(names) != len(want) {
		t.Fatalf("names=%v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names[%d]=%q want %q", i, names[i], want[i])
		}
	}
}

func TestParseSellerList(t *testing.T) {
	data := []byte(`[
		{"name": "Acme Computers", "item": "Laptop i7 16GB", "price": 1200, "stock": 10, "email": "sales@acme.com"},
		{"name": "Global Tech", "item": "Laptop i7 16GB", "price": 1150, "stock": 5}
	]`)
	records, err := ParseSellerList(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("len=%d", len(records))
	}
	if records[0].SKU != "laptop-i7-16-1" {
		t.Fatalf("synthesized sku=%q", records[0].SKU)
	}
	if records[1].DeliveryDays != 7 {
		t.Fatalf("default delivery=%d", records[1].DeliveryDays)
	}
}

func TestParseSellerListErrors(t *testing.T) {
	if _, err := ParseSellerList([]byte(`{"name":"not an array"}`)); err == nil {
		t.Fatal("expected parse error")
	}

	_, err := ParseSellerList([]byte(`[{"name": "Acme", "price": 5}]`))
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "item" {
		t.Fatalf("err=%v", err)
	}

	_, err = ParseSellerList([]byte(`[{"name": "Acme", "item": "Widget", "price": -1}]`))
	if !errors.As(err, &verr) || verr.Field != "price" {
		t.Fatalf("err=%v", err)
	}
}
