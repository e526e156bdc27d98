// Package server exposes the procurement assistant over HTTP: request
// extraction, quote recommendation, catalog management and purchase order
// finalization.
package server

import (
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"procure/internal/catalog"
	"procure/internal/config"
	"procure/internal/llm"
	"procure/internal/middleware"
	"procure/internal/quote"
)

type Server struct {
	cfg       config.Config
	log       zerolog.Logger
	catalog   *catalog.Store
	feed      *catalog.FeedClient
	completer llm.Completer
	orders    *quote.Log
}

// New wires a server over the given catalog. completer may be nil, in which
// case extraction runs on the fallback path only.
func New(cfg config.Config, log zerolog.Logger, cat *catalog.Store, feed *catalog.FeedClient, completer llm.Completer) *Server {
	return &Server{
		cfg:       cfg,
		log:       log,
		catalog:   cat,
		feed:      feed,
		completer: completer,
		orders:    quote.NewLog(),
	}
}

// Router builds the chi mux. Middleware order: recover, request id, logging,
// CORS.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recover(s.log))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(s.log))
	r.Use(middleware.CORS(s.cfg.AllowOrigins))

	r.Get("/health", s.handleHealth)
	r.Post("/extract", s.handleExtract)
	r.Post("/recommend", s.handleRecommend)

	r.Get("/catalog", s.handleCatalogList)
	r.Post("/catalog/sellers", s.handleCatalogSellers)
	r.Post("/catalog/import-feed", s.handleCatalogImportFeed)

	r.Get("/pos", s.handlePOList)
	r.Post("/pos", s.handlePOSave)
	r.Post("/finalize-po", s.handleFinalizePO)

	return r
}
