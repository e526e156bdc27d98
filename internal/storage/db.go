package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"procure/internal"
)

// DB is the sqlite audit store for the RFQ intake path. The product catalog
// and purchase orders live in memory only; the database keeps the inbox
// bookkeeping so a message is never processed twice.
type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS rfqs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  subject TEXT,
  sender TEXT,
  receivedAt TEXT,
  hash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'fetched',
  rawRef TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId)
);

CREATE TABLE IF NOT EXISTS extractions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  rfqId INTEGER NOT NULL,
  lineNo INTEGER NOT NULL,
  source TEXT NOT NULL,
  rawLine TEXT NOT NULL,
  parsedName TEXT,
  parsedQty REAL,
  parsedUnit TEXT,
  parsedJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(rfqId, lineNo, source, rawLine),
  FOREIGN KEY(rfqId) REFERENCES rfqs(id)
);

CREATE TABLE IF NOT EXISTS matches (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  extractionId INTEGER NOT NULL UNIQUE,
  status TEXT NOT NULL,
  confidence REAL NOT NULL,
  itemName TEXT,
  quantity INTEGER NOT NULL,
  sellerName TEXT,
  sku TEXT,
  unitPrice REAL,
  totalCost REAL,
  deliveryDays INTEGER,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(extractionId) REFERENCES extractions(id)
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  rfqId INTEGER,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(rfqId) REFERENCES rfqs(id)
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) UpsertRFQ(provider, messageID, subject, sender, receivedAt, hash, rawRef, status string) (internal.RFQRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO rfqs (provider, messageId, subject, sender, receivedAt, hash, status, rawRef)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, messageId) DO UPDATE SET
  subject=excluded.subject,
  sender=excluded.sender,
  receivedAt=excluded.receivedAt,
  hash=excluded.hash,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, provider, messageID, subject, sender, receivedAt, hash, status, rawRef)
	if err != nil {
		return internal.RFQRow{}, err
	}

	row, err := d.GetRFQByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.RFQRow{}, err
	}
	if row == nil {
		return internal.RFQRow{}, errors.New("failed to upsert rfq")
	}
	return *row, nil
}

func (d *DB) GetRFQByProviderMessageID(provider, messageID string) (*internal.RFQRow, error) {
	var row internal.RFQRow
	err := d.conn.QueryRow(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM rfqs WHERE provider = ? AND messageId = ?
`, provider, messageID).Scan(
		&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) GetRFQByID(id int) (*internal.RFQRow, error) {
	var row internal.RFQRow
	err := d.conn.QueryRow(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM rfqs WHERE id = ?
`, id).Scan(
		&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) MustRFQByProviderMessageID(provider, messageID string) (internal.RFQRow, error) {
	row, err := d.GetRFQByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.RFQRow{}, err
	}
	if row == nil {
		return internal.RFQRow{}, fmt.Errorf("rfq not found: provider=%s messageId=%s", provider, messageID)
	}
	return *row, nil
}

func (d *DB) ListRFQsByStatus(status string, limit int) ([]internal.RFQRow, error) {
	rows, err := d.conn.Query(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM rfqs WHERE status = ? ORDER BY receivedAt ASC LIMIT ?
`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RFQRow
	for rows.Next() {
		var row internal.RFQRow
		if err := rows.Scan(&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateRFQStatus(rfqID int, status string) error {
	_, err := d.conn.Exec(`UPDATE rfqs SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, rfqID)
	return err
}

// ClearRFQProcessing drops earlier extraction and match rows for a message so
// reprocessing starts clean.
func (d *DB) ClearRFQProcessing(rfqID int) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
DELETE FROM matches WHERE extractionId IN (SELECT id FROM extractions WHERE rfqId = ?)`, rfqID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM extractions WHERE rfqId = ?`, rfqID); err != nil {
		return err
	}

	return tx.Commit()
}

func (d *DB) InsertExtraction(rfqID int, item internal.ExtractionItem) (int64, error) {
	metaJSON, _ := json.Marshal(item.Meta)
	result, err := d.conn.Exec(`
INSERT INTO extractions (rfqId, lineNo, source, rawLine, parsedName, parsedQty, parsedUnit, parsedJson)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, rfqID, item.LineNo, string(item.Source), item.RawLine, item.Name, item.Qty, item.Unit, string(metaJSON))
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// InsertMatch records the catalog resolution of one extracted line together
// with the winning quote, if any.
func (d *DB) InsertMatch(extractionID int64, match internal.LineMatch, quote *internal.Quote) error {
	var sellerName, sku *string
	var unitPrice, totalCost *float64
	var deliveryDays *int
	if quote != nil {
		sellerName = &quote.SellerName
		sku = &quote.SKU
		up, _ := quote.UnitPrice.Float64()
		tc, _ := quote.TotalCost.Float64()
		unitPrice = &up
		totalCost = &tc
		deliveryDays = &quote.DeliveryDays
	}

	_, err := d.conn.Exec(`
INSERT INTO matches (extractionId, status, confidence, itemName, quantity, sellerName, sku, unitPrice, totalCost, deliveryDays)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, extractionID, string(match.Status), match.Confidence, match.ItemName, match.Quantity, sellerName, sku, unitPrice, totalCost, deliveryDays)
	return err
}

func (d *DB) InsertRun(traceID string, rfqID int, timings map[string]float64, counts map[string]int) error {
	timingsJSON, _ := json.Marshal(timings)
	countsJSON, _ := json.Marshal(counts)
	_, err := d.conn.Exec(`INSERT INTO runs (traceId, rfqId, timingsJson, countsJson) VALUES (?, ?, ?, ?)`, traceID, rfqID, string(timingsJSON), string(countsJSON))
	return err
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

// GetExportRows flattens the extraction and match rows of one message for
// the spreadsheet export, matched lines first.
func (d *DB) GetExportRows(rfqID int) ([]internal.QuoteExportRow, error) {
	rows, err := d.conn.Query(`
SELECT
  e.lineNo,
  e.source,
  e.rawLine,
  e.parsedName,
  e.parsedQty,
  e.parsedUnit,
  m.status,
  m.confidence,
  m.itemName,
  m.quantity,
  m.sellerName,
  m.sku,
  m.unitPrice,
  m.totalCost,
  m.deliveryDays
FROM extractions e
JOIN matches m ON m.extractionId = e.id
WHERE e.rfqId = ?
ORDER BY
  CASE m.status WHEN 'OK' THEN 1 ELSE 2 END,
  e.lineNo ASC
`, rfqID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.QuoteExportRow
	for rows.Next() {
		var row internal.QuoteExportRow
		if err := rows.Scan(
			&row.InputLineNo,
			&row.Source,
			&row.RawLine,
			&row.ParsedName,
			&row.ParsedQty,
			&row.ParsedUnit,
			&row.MatchStatus,
			&row.Confidence,
			&row.ItemName,
			&row.Quantity,
			&row.SellerName,
			&row.SKU,
			&row.UnitPrice,
			&row.TotalCost,
			&row.DeliveryDays,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}

	return out, rows.Err()
}
