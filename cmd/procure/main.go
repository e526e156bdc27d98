package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"procure/internal/catalog"
	"procure/internal/config"
	"procure/internal/connectors"
	gmailconnector "procure/internal/connectors/gmail"
	imapconnector "procure/internal/connectors/imap"
	"procure/internal/llm"
	"procure/internal/pipeline"
	"procure/internal/quote"
	"procure/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	store := catalog.NewSeededStore()

	cmd := os.Args[1]
	switch cmd {
	case "extract":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		text := fs.String("text", "", "free-text purchase request")
		useLLM := fs.Bool("llm", false, "use the language model when configured")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*text) == "" {
			must(fmt.Errorf("--text is required"))
		}

		var completer llm.Completer
		if *useLLM {
			client, err := llm.NewOpenAIClient(cfg)
			must(err)
			completer = client
		}

		extractor := pipeline.NewExtractor(completer, cfg.MatchThreshold, store.Names())
		requirement, ok := extractor.Extract(context.Background(), *text)
		if !ok {
			must(fmt.Errorf("no catalog item matches %q", *text))
		}
		printJSON(requirement)
	case "recommend":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		item := fs.String("item", "", "item name or sku fragment")
		qty := fs.Int("qty", 1, "quantity")
		pref := fs.String("preference", "cost", "cost|inventory|delivery")
		multi := fs.Bool("multi", false, "allocate across sellers")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*item) == "" {
			must(fmt.Errorf("--item is required"))
		}

		records := store.All()
		quotes := quote.Rank(quote.Search(records, *item, *qty), quote.NormalizePreference(*pref))
		if *multi {
			alloc, err := quote.Allocate(quote.Search(records, *item, 1), *qty)
			must(err)
			printJSON(map[string]any{"quotes": quotes, "allocation": alloc})
			return
		}
		if len(quotes) == 0 {
			must(fmt.Errorf("no seller can cover %d x %q", *qty, *item))
		}
		printJSON(quotes)
	case "feed:import":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		category := fs.String("category", "", "feed category, empty for all")
		_ = fs.Parse(os.Args[2:])

		feed := catalog.NewFeedClient(cfg)
		imported, err := feed.Import(context.Background(), store, *category)
		must(err)
		fmt.Printf("feed import done imported=%d catalog=%d\n", imported, store.Len())
	case "rfq:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "imap", "gmail|imap")
		label := fs.String("label", "INBOX", "mailbox/label")
		max := fs.Int("max", 50, "max messages")
		_ = fs.Parse(os.Args[2:])

		db := openDB(cfg)
		defer db.Close()
		conn, err := makeConnector(cfg, *provider)
		must(err)
		fetch := connectors.NewFetchService(db, cfg.RawRFQDir, conn)
		result, err := fetch.FetchAndStore(*label, *max)
		must(err)
		fmt.Printf("rfq fetch done provider=%s fetched=%d stored=%d\n", *provider, result.Fetched, result.Stored)
	case "rfq:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "", "limit to one provider")
		messageID := fs.String("messageId", "", "specific message-id")
		batch := fs.Int("batch", 20, "batch size")
		_ = fs.Parse(os.Args[2:])

		db := openDB(cfg)
		defer db.Close()
		processor := pipeline.NewProcessingService(db, store, cfg.MatchThreshold)
		if strings.TrimSpace(*messageID) != "" {
			res, err := processor.ProcessByProviderMessageID(*provider, *messageID)
			must(err)
			fmt.Printf("processed rfq id=%d lines=%d\n", res.RFQID, res.Processed)
			return
		}
		processedMessages, processedLines, err := processor.ProcessPending(*batch, *provider)
		must(err)
		fmt.Printf("processed pending rfqs=%d lines=%d\n", processedMessages, processedLines)
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		rfqID := fs.Int("rfqId", 0, "internal rfq id")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if *rfqID == 0 || strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--rfqId and --out are required"))
		}

		db := openDB(cfg)
		defer db.Close()
		rows, err := db.GetExportRows(*rfqID)
		must(err)
		if len(rows) == 0 {
			must(fmt.Errorf("no export rows for rfqId=%d", *rfqID))
		}
		must(pipeline.ExportRowsToXLSX(rows, *out))
		fmt.Printf("exported %d rows to %s\n", len(rows), *out)
	default:
		usage()
		os.Exit(1)
	}
}

func openDB(cfg config.Config) *storage.DB {
	db, err := storage.Open(cfg.DBPath)
	must(err)
	return db
}

func makeConnector(cfg config.Config, provider string) (connectors.MailConnector, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gmail":
		return gmailconnector.NewConnector(cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func usage() {
	fmt.Println("usage: procure <command>")
	fmt.Println("commands:")
	fmt.Println("  extract --text=\"need 10 laptops\" [--llm]")
	fmt.Println("  recommend --item=laptop --qty=5 [--preference=cost|inventory|delivery] [--multi]")
	fmt.Println("  feed:import [--category=electronics]")
	fmt.Println("  rfq:fetch --provider=gmail|imap --label=INBOX --max=50")
	fmt.Println("  rfq:process [--provider=gmail|imap] [--messageId=...] [--batch=20]")
	fmt.Println("  export:xlsx --rfqId=1 --out=./out/result.xlsx")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
