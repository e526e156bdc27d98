package internal

import "github.com/shopspring/decimal"

// ProductRecord is one seller's offer for one item. The in-memory catalog is
// a flat list of these; the same item name may appear under several sellers.
type ProductRecord struct {
	SellerName   string          `json:"seller_name"`
	ItemName     string          `json:"item_name"`
	SKU          string          `json:"sku"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Stock        int             `json:"stock"`
	DeliveryDays int             `json:"delivery_days"`
}

// Requirement is the structured form of a purchase request: which item and
// how many units.
type Requirement struct {
	ItemName string `json:"item_name"`
	Quantity int    `json:"quantity"`
}

// Quote is a seller offer priced for a concrete requested quantity.
type Quote struct {
	ProductRecord
	QuantityRequested int             `json:"quantity_requested"`
	TotalCost         decimal.Decimal `json:"total_cost"`
}

// AllocationLine is one seller's share of a multi-seller allocation.
type AllocationLine struct {
	SellerName string          `json:"seller_name"`
	SKU        string          `json:"sku"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Cost       decimal.Decimal `json:"cost"`
}

type Allocation struct {
	Lines        []AllocationLine `json:"lines"`
	CombinedCost decimal.Decimal  `json:"combined_cost"`
}

// PurchaseOrder is a finalized order. The total is always recomputed from
// unit price and quantity at assembly time.
type PurchaseOrder struct {
	SellerName string          `json:"seller_name"`
	ItemName   string          `json:"item_name"`
	SKU        string          `json:"sku"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalCost  decimal.Decimal `json:"total_cost"`
	CreatedAt  string          `json:"created_at"`
}

type ItemSource string

const (
	SourceEmailText      ItemSource = "email_text"
	SourceEmailHTMLTable ItemSource = "email_html_table"
	SourceXLSX           ItemSource = "xlsx"
	SourcePDF            ItemSource = "pdf"
)

// ExtractionItem is one candidate requirement line pulled out of an RFQ
// document, before catalog matching.
type ExtractionItem struct {
	LineNo  int
	Source  ItemSource
	RawLine string
	Name    *string
	Qty     *float64
	Unit    *string
	Meta    map[string]any
}

type MatchStatus string

const (
	MatchOK       MatchStatus = "OK"
	MatchNotFound MatchStatus = "NOT_FOUND"
)

// LineMatch is the catalog resolution of a single extracted line.
type LineMatch struct {
	Status     MatchStatus `json:"status"`
	Confidence float64     `json:"confidence"`
	ItemName   *string     `json:"item_name"`
	Quantity   int         `json:"quantity"`
}

// RFQRow mirrors one row of the rfqs audit table.
type RFQRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
}

// FetchedRFQMessage is a raw inbox message as returned by a mail connector.
type FetchedRFQMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}

// QuoteExportRow is one line of the XLSX quote export: the extracted input,
// its catalog match and the winning quote, flattened for a spreadsheet.
type QuoteExportRow struct {
	InputLineNo  int
	Source       string
	RawLine      string
	ParsedName   *string
	ParsedQty    *float64
	ParsedUnit   *string
	MatchStatus  string
	Confidence   float64
	ItemName     *string
	SellerName   *string
	SKU          *string
	UnitPrice    *float64
	Quantity     int
	TotalCost    *float64
	DeliveryDays *int
}
