package quote

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"procure/internal"
)

// Assemble turns a chosen quote into a purchase order. The total is
// recomputed from unit price and quantity; a stale total carried on the
// quote is ignored.
func Assemble(q internal.Quote, quantity int) internal.PurchaseOrder {
	return internal.PurchaseOrder{
		SellerName: q.SellerName,
		ItemName:   q.ItemName,
		SKU:        q.SKU,
		Quantity:   quantity,
		UnitPrice:  q.UnitPrice,
		TotalCost:  q.UnitPrice.Mul(decimal.NewFromInt(int64(quantity))),
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}
}

// Log is the in-memory, append-only record of finalized purchase orders.
// Entries are never mutated after insertion and the log is lost on restart.
type Log struct {
	mu     sync.RWMutex
	orders []internal.PurchaseOrder
}

func NewLog() *Log {
	return &Log{}
}

func (l *Log) Append(po internal.PurchaseOrder) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.orders = append(l.orders, po)
}

func (l *Log) All() []internal.PurchaseOrder {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]internal.PurchaseOrder, len(l.orders))
	copy(out, l.orders)
	return out
}

// MailtoDraft builds a pre-filled mailto link for a purchase order. Spaces
// and newlines are percent-encoded so mail clients accept the link.
func MailtoDraft(po internal.PurchaseOrder, recipient string) string {
	body := fmt.Sprintf(`Purchase Order:
Vendor: %s
Product: %s
Quantity: %d
Unit Price: $%s
Total Cost: $%s

Generated by the procurement assistant
`, po.SellerName, po.ItemName, po.Quantity, po.UnitPrice.String(), po.TotalCost.String())

	subject := mailtoEscape("Purchase Order")
	return fmt.Sprintf("mailto:%s?subject=%s&body=%s", recipient, subject, mailtoEscape(body))
}

func mailtoEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
