package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"procure/internal"
	"procure/internal/catalog"
	"procure/internal/pipeline"
	"procure/internal/quote"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type extractRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	extractor := pipeline.NewExtractor(s.completer, s.cfg.MatchThreshold, s.catalog.Names())
	requirement, ok := extractor.Extract(r.Context(), req.Text)
	if !ok {
		writeError(w, http.StatusNotFound, "no catalog item matches the request")
		return
	}
	writeJSON(w, http.StatusOK, requirement)
}

type recommendRequest struct {
	Text          string          `json:"text"`
	ItemName      string          `json:"item_name"`
	Quantity      int             `json:"quantity"`
	Preference    string          `json:"preference"`
	MultiVendor   bool            `json:"multi_vendor"`
	CustomSellers json.RawMessage `json:"custom_sellers"`
}

type recommendResponse struct {
	Requirement internal.Requirement `json:"requirement"`
	Quotes      []internal.Quote     `json:"quotes"`
	Allocation  *internal.Allocation `json:"allocation,omitempty"`
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	records := s.catalog.All()
	if len(req.CustomSellers) > 0 {
		extra, err := catalog.ParseSellerList(req.CustomSellers)
		if err != nil {
			writeSellerError(w, err)
			return
		}
		records = append(records, extra...)
	}

	requirement := internal.Requirement{ItemName: req.ItemName, Quantity: req.Quantity}
	if strings.TrimSpace(requirement.ItemName) == "" {
		if strings.TrimSpace(req.Text) == "" {
			writeError(w, http.StatusBadRequest, "item_name or text is required")
			return
		}
		extractor := pipeline.NewExtractor(s.completer, s.cfg.MatchThreshold, s.catalog.Names())
		extracted, ok := extractor.Extract(r.Context(), req.Text)
		if !ok {
			writeError(w, http.StatusNotFound, "no catalog item matches the request")
			return
		}
		requirement = extracted
	}
	if requirement.Quantity < 1 {
		requirement.Quantity = 1
	}

	quotes := quote.Search(records, requirement.ItemName, requirement.Quantity)
	if len(quotes) == 0 && !req.MultiVendor {
		writeError(w, http.StatusNotFound, "no seller can cover the requested quantity")
		return
	}

	resp := recommendResponse{
		Requirement: requirement,
		Quotes:      quote.Rank(quotes, quote.NormalizePreference(req.Preference)),
	}

	if req.MultiVendor {
		// For allocation every in-stock offer counts, sellers that cannot
		// cover the whole quantity alone included.
		candidates := quote.Search(records, requirement.ItemName, 1)
		alloc, err := quote.Allocate(candidates, requirement.Quantity)
		if err != nil {
			if errors.Is(err, quote.ErrInsufficientStock) {
				writeError(w, http.StatusConflict, "insufficient aggregate stock across sellers")
				return
			}
			writeError(w, http.StatusInternalServerError, "allocation failed")
			return
		}
		resp.Allocation = &alloc
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCatalogList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"records": s.catalog.All(),
		"count":   s.catalog.Len(),
	})
}

func (s *Server) handleCatalogSellers(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	records, err := catalog.ParseSellerList(raw)
	if err != nil {
		writeSellerError(w, err)
		return
	}

	s.catalog.Append(records...)
	writeJSON(w, http.StatusOK, map[string]int{
		"added": len(records),
		"total": s.catalog.Len(),
	})
}

func (s *Server) handleCatalogImportFeed(w http.ResponseWriter, r *http.Request) {
	if s.feed == nil {
		writeError(w, http.StatusServiceUnavailable, "product feed is not configured")
		return
	}

	category := r.URL.Query().Get("category")
	imported, err := s.feed.Import(r.Context(), s.catalog, category)
	if err != nil {
		var feedErr *catalog.FeedError
		if errors.As(err, &feedErr) {
			writeError(w, http.StatusBadGateway, "product feed rejected the request")
			return
		}
		s.log.Error().Err(err).Msg("feed import failed")
		writeError(w, http.StatusBadGateway, "product feed unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{
		"imported": imported,
		"total":    s.catalog.Len(),
	})
}

func (s *Server) handlePOList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"purchase_orders": s.orders.All()})
}

type poRequest struct {
	Quote          internal.Quote `json:"quote"`
	Quantity       int            `json:"quantity"`
	Mode           string         `json:"mode"`
	RecipientEmail string         `json:"recipient_email"`
}

func (s *Server) handlePOSave(w http.ResponseWriter, r *http.Request) {
	var req poRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validatePO(req); err != "" {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	po := quote.Assemble(req.Quote, req.Quantity)
	s.orders.Append(po)
	writeJSON(w, http.StatusCreated, po)
}

func (s *Server) handleFinalizePO(w http.ResponseWriter, r *http.Request) {
	var req poRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validatePO(req); err != "" {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	mode := strings.ToLower(strings.TrimSpace(req.Mode))
	if mode == "" {
		mode = "record"
	}

	switch mode {
	case "record":
		po := quote.Assemble(req.Quote, req.Quantity)
		s.orders.Append(po)
		writeJSON(w, http.StatusCreated, map[string]any{"purchase_order": po})
	case "email":
		if strings.TrimSpace(req.RecipientEmail) == "" {
			writeError(w, http.StatusBadRequest, "recipient_email is required for email mode")
			return
		}
		po := quote.Assemble(req.Quote, req.Quantity)
		s.orders.Append(po)
		writeJSON(w, http.StatusCreated, map[string]any{
			"purchase_order": po,
			"mailto":         quote.MailtoDraft(po, req.RecipientEmail),
		})
	default:
		writeError(w, http.StatusBadRequest, "unsupported mode: "+mode)
	}
}

func validatePO(req poRequest) string {
	if strings.TrimSpace(req.Quote.SellerName) == "" {
		return "quote.seller_name is required"
	}
	if strings.TrimSpace(req.Quote.ItemName) == "" {
		return "quote.item_name is required"
	}
	if req.Quantity < 1 {
		return "quantity must be at least 1"
	}
	return ""
}
