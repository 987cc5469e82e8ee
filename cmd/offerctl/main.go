package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"studentoffer/internal"
	"studentoffer/internal/config"
	"studentoffer/internal/connectors"
	gmailconnector "studentoffer/internal/connectors/gmail"
	imapconnector "studentoffer/internal/connectors/imap"
	"studentoffer/internal/cricos"
	"studentoffer/internal/listener"
	"studentoffer/internal/logger"
	"studentoffer/internal/pipeline"
	"studentoffer/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	log, closeLog, err := logger.New(cfg, os.Stderr)
	must(err)
	defer closeLog()

	cmd := os.Args[1]
	switch cmd {
	case "compose":
		runCompose(cfg, log, os.Args[2:])
	case "submit":
		runSubmit(cfg, os.Args[2:])
	case "offers:list":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		status := fs.String("status", "", "composed|validated|rejected|submitted|failed (empty = all)")
		limit := fs.Int("limit", 50, "max offers")
		_ = fs.Parse(os.Args[2:])
		db := openDB(cfg)
		defer db.Close()
		rows, err := db.ListOffersByStatus(internal.OfferStatus(*status), *limit)
		must(err)
		for _, row := range rows {
			fmt.Printf("%-32s %-10s issues=%d source=%s\n", row.OfferID, row.Status, len(row.Issues), row.Source)
		}
		fmt.Printf("%d offers\n", len(rows))
	case "offers:submit":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		offerID := fs.String("offerId", "", "stored offer id")
		noSubmit := fs.Bool("no-submit", false, "validate only")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*offerID) == "" {
			must(fmt.Errorf("--offerId is required"))
		}
		db := openDB(cfg)
		defer db.Close()
		svc := cricos.NewSubmissionService(db, cricos.NewClient(cfg), log)
		out, err := svc.SubmitWithValidation(context.Background(), *offerID, !*noSubmit)
		must(err)
		printOutcome(out)
	case "offers:submit-pending":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		limit := fs.Int("limit", 20, "max offers")
		_ = fs.Parse(os.Args[2:])
		db := openDB(cfg)
		defer db.Close()
		svc := cricos.NewSubmissionService(db, cricos.NewClient(cfg), log)
		outcomes, err := svc.SubmitPending(context.Background(), *limit)
		for _, out := range outcomes {
			printOutcome(out)
		}
		must(err)
		fmt.Printf("submit pending done offers=%d\n", len(outcomes))
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		status := fs.String("status", "", "offer status filter (empty = all)")
		out := fs.String("out", "", "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--out is required"))
		}
		db := openDB(cfg)
		defer db.Close()
		rows, err := db.GetExportRows(internal.OfferStatus(*status))
		must(err)
		if len(rows) == 0 {
			must(fmt.Errorf("no offers to export for status=%q", *status))
		}
		must(pipeline.ExportOffersToXLSX(rows, *out))
		fmt.Printf("exported %d offers to %s\n", len(rows), *out)
	case "mail:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", cfg.IntakeProvider, "gmail|imap")
		label := fs.String("label", cfg.IntakeLabel, "mailbox/label")
		max := fs.Int("max", cfg.IntakeFetchMax, "max messages")
		_ = fs.Parse(os.Args[2:])
		conn, err := makeConnector(cfg, *provider)
		must(err)
		db := openDB(cfg)
		defer db.Close()
		fetch := connectors.NewFetchService(db, cfg.RawMailDir, conn, log)
		result, err := fetch.FetchAndStore(context.Background(), *label, *max)
		must(err)
		fmt.Printf("mail fetch done provider=%s fetched=%d stored=%d\n", *provider, result.Fetched, result.Stored)
	case "mail:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "", "gmail|imap (empty = all)")
		messageID := fs.String("messageId", "", "specific message-id")
		batch := fs.Int("batch", cfg.IntakeProcessBatch, "batch size")
		_ = fs.Parse(os.Args[2:])
		db := openDB(cfg)
		defer db.Close()
		processor := pipeline.NewProcessingService(db, cfg, log)
		if strings.TrimSpace(*messageID) != "" {
			res, err := processor.ProcessByProviderMessageID(*provider, *messageID)
			must(err)
			fmt.Printf("processed intake id=%d status=%s offers=%d failed=%d\n", res.IntakeID, res.Status, len(res.Offers), res.Failed)
			return
		}
		handled, offers, err := processor.ProcessPendingIntake(*batch, *provider)
		must(err)
		fmt.Printf("processed pending messages=%d offers=%d\n", handled, len(offers))
	case "mail:listen":
		db := openDB(cfg)
		defer db.Close()
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		s := listener.NewService(db, cfg, log)
		must(s.Run(ctx))
	default:
		usage()
		os.Exit(1)
	}
}

func runCompose(cfg config.Config, log *slog.Logger, args []string) {
	fs := flag.NewFlagSet("compose", flag.ExitOnError)
	out := fs.String("out", "", "output JSON file path")
	yamlContent := fs.String("yaml-content", "", "YAML content as string")
	yamlBase64 := fs.String("yaml-base64", "", "base64 encoded YAML content")
	yamlStdin := fs.Bool("yaml-stdin", false, "read YAML from stdin")
	configPath := fs.String("config", "", "configuration file (YAML or JSON)")
	quick := fs.Bool("quick", false, "generate with default test data")
	noFix := fs.Bool("no-fix", false, "skip the indentation fixer")
	noStore := fs.Bool("no-store", false, "only write the JSON file")
	_ = fs.Parse(args)

	if strings.TrimSpace(*out) == "" {
		fail("--out is required")
	}

	var mode pipeline.InputMode
	var value string
	switch {
	case *yamlContent != "":
		mode, value = pipeline.InputContent, *yamlContent
	case *yamlBase64 != "":
		mode, value = pipeline.InputBase64, *yamlBase64
	case *yamlStdin:
		mode = pipeline.InputStdin
	case *configPath != "":
		mode, value = pipeline.InputFile, *configPath
	case *quick:
		mode = pipeline.InputQuick
	default:
		fail("No input method specified. Use --yaml-content, --yaml-base64, --yaml-stdin, --config, or --quick")
	}

	in, err := pipeline.LoadInput(mode, value, os.Stdin)
	if err != nil {
		fail("%v", err)
	}

	var db *storage.DB
	if !*noStore {
		db, err = storage.Open(cfg.DBPath)
		if err != nil {
			fail("open store: %v", err)
		}
		defer db.Close()
	}

	res, err := pipeline.NewProcessingService(db, cfg, log).ComposeInput(in, *out, !*noFix)
	if err != nil {
		var perr *pipeline.ParseError
		if errors.As(err, &perr) {
			fmt.Println("[ERROR] YAML parsing failed. Content preview:")
			for _, line := range perr.Preview {
				fmt.Printf("  %s\n", line)
			}
		}
		fail("%v", err)
	}

	fmt.Printf("Written to %s\n", res.OutputPath)
	if len(res.Issues) > 0 {
		fmt.Println("[WARN] Auto-fix notes:")
		for _, issue := range res.Issues {
			fmt.Printf(" - %s\n", issue)
		}
	}
}

func runSubmit(cfg config.Config, args []string) {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	base := fs.String("base", cfg.CricosAPIBaseURL, "API base URL")
	file := fs.String("file", "output.json", "offer JSON file")
	validate := fs.Bool("validate", false, "call /Validate before submit")
	noSubmit := fs.Bool("no-submit", false, "skip submit (validate only)")
	_ = fs.Parse(args)

	offer, raw, err := pipeline.LoadOfferJSON(*file)
	must(err)
	blob, err := pipeline.MarshalOffer(offer)
	must(err)
	pretty("LOADED OFFER", string(blob))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client := cricos.NewClient(cfg).WithBaseURL(*base)
	token, err := client.AccessToken(ctx)
	must(err)
	pretty("ACCESS TOKEN", tokenPreview(token))

	if *validate || *noSubmit {
		res, err := client.Validate(ctx, raw)
		must(err)
		pretty(fmt.Sprintf("VALIDATE RESULT (%d)", res.StatusCode), res.Pretty())
		if *noSubmit || res.StatusCode >= 400 {
			return
		}
	}

	res, err := client.Submit(ctx, raw)
	must(err)
	pretty(fmt.Sprintf("SUBMIT RESULT (%d)", res.StatusCode), res.Pretty())
}

func tokenPreview(token string) string {
	if len(token) > 8 {
		token = token[:8]
	}
	return token + "..."
}

func pretty(title, payload string) {
	fmt.Printf("\n=== %s ===\n%s\n", title, payload)
}

func printOutcome(out cricos.Outcome) {
	fmt.Printf("offer=%s stage=%s status=%s\n", out.OfferID, out.Stage, out.Status)
	for _, e := range out.Errors {
		fmt.Printf(" - %s\n", e)
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

func usage() {
	fmt.Printf("usage: %s <command>\n", filepath.Base(os.Args[0]))
	fmt.Println("commands:")
	fmt.Println("  compose --out=output.json [--config=...|--yaml-content=...|--yaml-base64=...|--yaml-stdin|--quick] [--no-fix] [--no-store]")
	fmt.Println("  submit --file=output.json [--base=...] [--validate] [--no-submit]")
	fmt.Println("  offers:list [--status=composed] [--limit=50]")
	fmt.Println("  offers:submit --offerId=... [--no-submit]")
	fmt.Println("  offers:submit-pending [--limit=20]")
	fmt.Println("  export:xlsx --out=./out/offers.xlsx [--status=...]")
	fmt.Println("  mail:fetch --provider=gmail|imap --label=INBOX --max=20")
	fmt.Println("  mail:process [--provider=gmail|imap] [--messageId=...] [--batch=20]")
	fmt.Println("  mail:listen")
}

func fail(format string, args ...any) {
	fmt.Printf("[ERROR] "+format+"\n", args...)
	os.Exit(1)
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
