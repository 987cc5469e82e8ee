package listener

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"studentoffer/internal/config"
	"studentoffer/internal/connectors"
	gmailconnector "studentoffer/internal/connectors/gmail"
	imapconnector "studentoffer/internal/connectors/imap"
	"studentoffer/internal/cricos"
	"studentoffer/internal/pipeline"
	"studentoffer/internal/storage"
)

type Service struct {
	db        *storage.DB
	cfg       config.Config
	log       *slog.Logger
	processor *pipeline.ProcessingService
	submitter *cricos.SubmissionService

	// connect is swapped in tests
	connect func(provider string) (connectors.MailConnector, error)
}

func NewService(db *storage.DB, cfg config.Config, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	s := &Service{
		db:        db,
		cfg:       cfg,
		log:       log,
		processor: pipeline.NewProcessingService(db, cfg, log),
	}
	s.connect = s.makeConnector
	if cfg.IntakeAutoSubmit {
		s.submitter = cricos.NewSubmissionService(db, cricos.NewClient(cfg), log)
	}
	return s
}

type CycleResult struct {
	Fetched   int
	Stored    int
	Processed int
	Offers    int
	Submitted int
}

func (s *Service) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.IntakeIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	for {
		res, err := s.RunCycle(ctx)
		if err != nil {
			s.log.Error("listener cycle failed", slog.Any("err", err))
		} else {
			s.log.Info("listener cycle done",
				slog.Int("fetched", res.Fetched),
				slog.Int("stored", res.Stored),
				slog.Int("processed", res.Processed),
				slog.Int("offers", res.Offers),
				slog.Int("submitted", res.Submitted),
			)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

// RunCycle fetches new mail, composes the offers it carries and, when
// configured, submits them and refreshes the review workbook.
func (s *Service) RunCycle(ctx context.Context) (CycleResult, error) {
	provider := strings.ToLower(strings.TrimSpace(s.cfg.IntakeProvider))
	mailConnector, err := s.connect(provider)
	if err != nil {
		return CycleResult{}, err
	}

	fetchService := connectors.NewFetchService(s.db, s.cfg.RawMailDir, mailConnector, s.log)
	fetchResult, err := fetchService.FetchAndStore(ctx, s.cfg.IntakeLabel, s.cfg.IntakeFetchMax)
	if err != nil {
		return CycleResult{}, err
	}
	res := CycleResult{Fetched: fetchResult.Fetched, Stored: fetchResult.Stored}

	processed, offers, err := s.processor.ProcessPendingIntake(s.cfg.IntakeProcessBatch, mailConnector.Provider())
	if err != nil {
		return res, err
	}
	res.Processed = processed
	res.Offers = len(offers)

	if s.submitter != nil {
		for _, offer := range offers {
			out, err := s.submitter.SubmitWithValidation(ctx, offer.Offer.OfferID, true)
			if err != nil {
				return res, err
			}
			if out.Submit != nil && out.Submit.OK() {
				res.Submitted++
			}
		}
	}

	if s.cfg.IntakeAutoExport && res.Offers > 0 {
		if err := s.exportReview(); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (s *Service) exportReview() error {
	rows, err := s.db.GetExportRows("")
	if err != nil {
		return err
	}
	outputPath := filepath.Join(s.cfg.OutputDir, "listener", "offers-review.xlsx")
	return pipeline.ExportOffersToXLSX(rows, outputPath)
}

func (s *Service) makeConnector(provider string) (connectors.MailConnector, error) {
	switch provider {
	case "gmail":
		return gmailconnector.NewConnector(s.cfg)
	case "imap":
		return imapconnector.NewConnector(s.cfg)
	default:
		return nil, fmt.Errorf("unsupported intake provider: %s", provider)
	}
}
