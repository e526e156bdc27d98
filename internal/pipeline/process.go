package pipeline

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"procure/internal"
	"procure/internal/catalog"
	"procure/internal/quote"
	"procure/internal/storage"
	"procure/internal/util"
)

// ProcessingService resolves fetched RFQ messages against the in-memory
// catalog and records the outcome in the audit store.
type ProcessingService struct {
	db        *storage.DB
	catalog   *catalog.Store
	threshold float64
}

func NewProcessingService(db *storage.DB, cat *catalog.Store, threshold float64) *ProcessingService {
	return &ProcessingService{db: db, catalog: cat, threshold: threshold}
}

type ProcessResult struct {
	RFQID     int
	Processed int
}

func (s *ProcessingService) ProcessByProviderMessageID(provider, messageID string) (ProcessResult, error) {
	rfq, err := s.db.MustRFQByProviderMessageID(provider, messageID)
	if err != nil {
		return ProcessResult{}, err
	}
	return s.ProcessRFQ(rfq)
}

// ProcessPending works through messages still in the fetched state, oldest
// first. Returns the number of messages and lines handled.
func (s *ProcessingService) ProcessPending(limit int, provider string) (int, int, error) {
	pending, err := s.db.ListRFQsByStatus("fetched", limit)
	if err != nil {
		return 0, 0, err
	}
	processedMessages := 0
	processedLines := 0
	for _, rfq := range pending {
		if provider != "" && rfq.Provider != provider {
			continue
		}
		res, err := s.ProcessRFQ(rfq)
		if err != nil {
			return processedMessages, processedLines, err
		}
		processedMessages++
		processedLines += res.Processed
	}
	return processedMessages, processedLines, nil
}

// ProcessRFQ runs the full pipeline for one message: parse, detect, match
// each line against the catalog, pick the cheapest quote, persist. Messages
// that do not look like an RFQ are marked skipped.
func (s *ProcessingService) ProcessRFQ(rfq internal.RFQRow) (ProcessResult, error) {
	start := time.Now()
	raw, err := os.ReadFile(rfq.RawRef)
	if err != nil {
		return ProcessResult{}, err
	}

	items, subject, text, attachmentNames, err := ExtractItemsFromEmailRaw(raw)
	if err != nil {
		return ProcessResult{}, err
	}

	detect := DetectRFQ(firstNonEmpty(subject, rfq.Subject), text, "", attachmentNames)
	if err := s.db.ClearRFQProcessing(rfq.ID); err != nil {
		return ProcessResult{}, err
	}

	if !detect.IsRFQ {
		_ = s.db.UpdateRFQStatus(rfq.ID, "skipped")
		_ = s.db.InsertRun(traceID(), rfq.ID,
			map[string]float64{"totalMs": float64(time.Since(start).Milliseconds())},
			map[string]int{"extracted": 0, "ok": 0, "notFound": 0})
		return ProcessResult{RFQID: rfq.ID, Processed: 0}, nil
	}

	matcher := NewMatcher(s.threshold, s.catalog.Names())
	records := s.catalog.All()

	okCount, notFoundCount := 0, 0
	for _, item := range items {
		match, best := s.matchLine(matcher, records, item)
		extractionID, err := s.db.InsertExtraction(rfq.ID, item)
		if err != nil {
			return ProcessResult{}, err
		}
		if err := s.db.InsertMatch(extractionID, match, best); err != nil {
			return ProcessResult{}, err
		}

		if match.Status == internal.MatchOK {
			okCount++
		} else {
			notFoundCount++
		}
	}

	if err := s.db.UpdateRFQStatus(rfq.ID, "processed"); err != nil {
		return ProcessResult{}, err
	}
	_ = s.db.InsertRun(traceID(), rfq.ID,
		map[string]float64{"totalMs": float64(time.Since(start).Milliseconds())},
		map[string]int{"extracted": len(items), "ok": okCount, "notFound": notFoundCount})

	return ProcessResult{RFQID: rfq.ID, Processed: len(items)}, nil
}

// matchLine resolves one extracted line to a catalog item and its cheapest
// in-stock quote.
func (s *ProcessingService) matchLine(matcher *Matcher, records []internal.ProductRecord, item internal.ExtractionItem) (internal.LineMatch, *internal.Quote) {
	query := item.RawLine
	if item.Name != nil && strings.TrimSpace(*item.Name) != "" {
		query = *item.Name
	}

	qty := 1
	if item.Qty != nil && *item.Qty >= 1 {
		qty = int(*item.Qty)
	}

	name, score, ok := matcher.BestMatch(query)
	if !ok {
		return internal.LineMatch{Status: internal.MatchNotFound, Confidence: score, Quantity: qty}, nil
	}

	match := internal.LineMatch{
		Status:     internal.MatchOK,
		Confidence: score,
		ItemName:   util.StringPtr(name),
		Quantity:   qty,
	}

	quotes := quote.Rank(quote.Search(records, name, qty), quote.PreferenceCost)
	if len(quotes) == 0 {
		return match, nil
	}
	best := quotes[0]
	return match, &best
}

func traceID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
