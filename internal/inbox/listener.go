package inbox

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"procure/internal/catalog"
	"procure/internal/config"
	"procure/internal/connectors"
	gmailconnector "procure/internal/connectors/gmail"
	imapconnector "procure/internal/connectors/imap"
	"procure/internal/pipeline"
	"procure/internal/storage"
)

// Listener polls a mailbox for RFQ messages and pushes them through the
// processing pipeline, optionally exporting the results as spreadsheets.
type Listener struct {
	db      *storage.DB
	catalog *catalog.Store
	cfg     config.Config
	log     zerolog.Logger
}

func NewListener(db *storage.DB, cat *catalog.Store, cfg config.Config, log zerolog.Logger) *Listener {
	return &Listener{db: db, catalog: cat, cfg: cfg, log: log}
}

// Run loops until the context is cancelled. A failed cycle is logged and
// retried on the next tick.
func (l *Listener) Run(ctx context.Context) error {
	for {
		if err := l.runCycle(); err != nil {
			l.log.Error().Err(err).Msg("listener cycle failed")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Duration(l.cfg.ListenerIntervalSec) * time.Second):
		}
	}
}

func (l *Listener) runCycle() error {
	provider := strings.ToLower(strings.TrimSpace(l.cfg.ListenerProvider))
	mailConnector, err := l.makeConnector(provider)
	if err != nil {
		return err
	}

	fetchService := connectors.NewFetchService(l.db, l.cfg.RawRFQDir, mailConnector)
	fetchResult, err := fetchService.FetchAndStore(l.cfg.ListenerLabel, l.cfg.ListenerFetchMax)
	if err != nil {
		return err
	}

	processor := pipeline.NewProcessingService(l.db, l.catalog, l.cfg.MatchThreshold)
	processedMessages, processedLines, err := processor.ProcessPending(l.cfg.ListenerProcessBatch, provider)
	if err != nil {
		return err
	}

	if l.cfg.ListenerAutoExport {
		if err := l.exportProcessed(provider); err != nil {
			return err
		}
	}

	l.log.Info().
		Str("provider", provider).
		Int("fetched", fetchResult.Fetched).
		Int("stored", fetchResult.Stored).
		Int("messages", processedMessages).
		Int("lines", processedLines).
		Msg("listener cycle done")
	return nil
}

func (l *Listener) exportProcessed(provider string) error {
	rfqs, err := l.db.ListRFQsByStatus("processed", 200)
	if err != nil {
		return err
	}

	for _, rfq := range rfqs {
		if rfq.Provider != provider {
			continue
		}
		rows, err := l.db.GetExportRows(rfq.ID)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			continue
		}
		filename := fmt.Sprintf("%d_%s.xlsx", rfq.ID, sanitizeMessageID(rfq.MessageID))
		outputPath := filepath.Join(l.cfg.OutputDir, "listener", filename)
		if err := pipeline.ExportRowsToXLSX(rows, outputPath); err != nil {
			return err
		}
		_ = l.db.UpdateRFQStatus(rfq.ID, "exported")
		l.log.Info().Int("rfq", rfq.ID).Str("file", outputPath).Msg("quote sheet exported")
	}
	return nil
}

func (l *Listener) makeConnector(provider string) (connectors.MailConnector, error) {
	switch provider {
	case "gmail":
		return gmailconnector.NewConnector(l.cfg)
	case "imap":
		return imapconnector.NewConnector(l.cfg)
	default:
		return nil, fmt.Errorf("unsupported listener provider: %s", provider)
	}
}

func sanitizeMessageID(input string) string {
	repl := strings.NewReplacer("<", "_", ">", "_", ":", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_", " ", "_")
	out := repl.Replace(input)
	if len(out) > 120 {
		out = out[:120]
	}
	return out
}
