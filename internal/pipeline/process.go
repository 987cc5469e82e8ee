package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"studentoffer/internal"
	"studentoffer/internal/config"
	"studentoffer/internal/storage"
	"studentoffer/internal/util"
)

// ProcessingService turns raw documents into stored offers. The db may be
// nil, in which case offers are only written to disk.
type ProcessingService struct {
	db       *storage.DB
	cfg      config.Config
	log      *slog.Logger
	composer *Composer
}

func NewProcessingService(db *storage.DB, cfg config.Config, log *slog.Logger) *ProcessingService {
	if log == nil {
		log = slog.Default()
	}
	return &ProcessingService{db: db, cfg: cfg, log: log, composer: NewComposer()}
}

// WithComposer swaps the composer, mainly to pin the clock.
func (s *ProcessingService) WithComposer(c *Composer) *ProcessingService {
	s.composer = c
	return s
}

type ComposeResult struct {
	Offer      internal.Offer
	Issues     []string
	OutputPath string
	TraceID    string
}

type ParseError struct {
	Source  string
	Preview []string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (s *ProcessingService) ComposeInput(in Input, outPath string, fix bool) (ComposeResult, error) {
	return s.ComposeText(in.Source, in.Text, outPath, fix && in.Fixable)
}

// ComposeText runs fix, parse, compose and write for one document. An empty
// outPath writes to <OUTPUT_DIR>/offers/<OfferId>.json.
func (s *ProcessingService) ComposeText(source, text, outPath string, fix bool) (ComposeResult, error) {
	return s.composeText(source, text, outPath, fix, 0, "")
}

func (s *ProcessingService) composeText(source, text, outPath string, fix bool, intakeID int, fallbackID string) (ComposeResult, error) {
	start := time.Now()
	trace := uuid.NewString()

	if fix {
		text = FixYAMLIndentation(text)
	}
	raw, err := ParseDocument(text)
	if err != nil {
		return ComposeResult{}, &ParseError{Source: source, Preview: Preview(text, 5), Err: err}
	}
	parsed := time.Now()

	if fallbackID != "" && trimmed(raw["offer_id"]) == "" {
		raw["offer_id"] = fallbackID
	}
	offer, issues := s.composer.Compose(raw)
	composed := time.Now()

	if outPath == "" {
		if outPath, err = offerPath(s.cfg.OutputDir, offer.OfferID); err != nil {
			return ComposeResult{}, err
		}
	}
	abs, err := WriteOfferJSON(offer, outPath)
	if err != nil {
		return ComposeResult{}, fmt.Errorf("write offer: %w", err)
	}

	if s.db != nil {
		if _, err := s.db.UpsertOffer(offer, source, issues, abs); err != nil {
			return ComposeResult{}, fmt.Errorf("store offer: %w", err)
		}
		timings := map[string]float64{
			"parseMs":   ms(parsed.Sub(start)),
			"composeMs": ms(composed.Sub(parsed)),
			"totalMs":   ms(time.Since(start)),
		}
		counts := map[string]int{
			"issues":       len(issues),
			"addresses":    len(offer.Addresses),
			"courses":      len(offer.AppliedCourses),
			"disabilities": len(offer.Disabilities),
		}
		if err := s.db.InsertRun(trace, offer.OfferID, intakeID, timings, counts); err != nil {
			s.log.Warn("record run", slog.String("trace_id", trace), slog.Any("err", err))
		}
	}

	s.log.Info("offer composed",
		slog.String("trace_id", trace),
		slog.String("offer_id", offer.OfferID),
		slog.String("source", source),
		slog.Int("issues", len(issues)),
		slog.String("path", abs),
	)
	return ComposeResult{Offer: offer, Issues: issues, OutputPath: abs, TraceID: trace}, nil
}

// offerPath places an offer file under <outputDir>/offers. The id comes
// from untrusted documents, so only [A-Za-z0-9_-] survive in the file name;
// a rewritten id gets a hash suffix to keep distinct ids apart.
func offerPath(outputDir, offerID string) (string, error) {
	dir, err := filepath.Abs(filepath.Join(outputDir, "offers"))
	if err != nil {
		return "", err
	}
	name := offerFileName(offerID)
	path := filepath.Join(dir, name+".json")
	if rel, err := filepath.Rel(dir, path); err != nil || rel != name+".json" {
		return "", fmt.Errorf("offer path for %q escapes %s", offerID, dir)
	}
	return path, nil
}

func offerFileName(offerID string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, offerID)
	if len(name) > 96 {
		name = name[:96]
	}
	if name == offerID && name != "" {
		return name
	}
	sum := sha256.Sum256([]byte(offerID))
	return strings.Trim(name, "_") + "_" + hex.EncodeToString(sum[:4])
}

type IntakeResult struct {
	IntakeID int
	Status   string
	Reason   string
	Offers   []ComposeResult
	Failed   int
}

func (s *ProcessingService) ProcessByProviderMessageID(provider, messageID string) (IntakeResult, error) {
	if s.db == nil {
		return IntakeResult{}, errors.New("processing intake requires a database")
	}
	row, err := s.db.GetIntakeByProviderMessageID(provider, messageID)
	if err != nil {
		return IntakeResult{}, err
	}
	if row == nil {
		return IntakeResult{}, fmt.Errorf("intake message not found: provider=%s messageId=%s", provider, messageID)
	}
	return s.ProcessIntakeMessage(*row)
}

// ProcessPendingIntake processes fetched messages and returns how many
// messages were handled and how many offers came out of them.
func (s *ProcessingService) ProcessPendingIntake(limit int, provider string) (int, []ComposeResult, error) {
	if s.db == nil {
		return 0, nil, errors.New("processing intake requires a database")
	}
	pending, err := s.db.ListIntakeByStatus(internal.IntakeFetched, provider, limit)
	if err != nil {
		return 0, nil, err
	}
	handled := 0
	var offers []ComposeResult
	for _, row := range pending {
		res, err := s.ProcessIntakeMessage(row)
		if err != nil {
			return handled, offers, err
		}
		handled++
		offers = append(offers, res.Offers...)
	}
	return handled, offers, nil
}

// ProcessIntakeMessage composes every application document found in a
// stored message. A document that does not parse is logged and counted; it
// does not stop the rest of the message.
func (s *ProcessingService) ProcessIntakeMessage(row internal.IntakeRow) (IntakeResult, error) {
	if s.db == nil {
		return IntakeResult{}, errors.New("processing intake requires a database")
	}
	log := s.log.With(slog.Int("intake_id", row.ID), slog.String("provider", row.Provider))

	raw, err := os.ReadFile(row.RawRef)
	if err != nil {
		return IntakeResult{}, err
	}
	extraction, err := ExtractDocumentsFromEmailRaw(raw)
	if err != nil {
		_ = s.db.UpdateIntakeStatus(row.ID, internal.IntakeFailed)
		return IntakeResult{}, fmt.Errorf("read message %d: %w", row.ID, err)
	}

	detect := DetectApplication(firstNonEmpty(extraction.Subject, row.Subject), extraction.Text, extraction.AttachmentNames, len(extraction.Documents))
	result := IntakeResult{IntakeID: row.ID, Reason: detect.Reason}
	if !detect.IsApplication {
		result.Status = internal.IntakeSkipped
		log.Info("intake skipped", slog.String("reason", detect.Reason), slog.Float64("score", detect.Score))
		return result, s.db.UpdateIntakeStatus(row.ID, internal.IntakeSkipped)
	}

	stamp := util.CompactLocal(s.composer.now())
	for i, doc := range extraction.Documents {
		fallbackID := fmt.Sprintf("OFFER_%s_%d_%d", stamp, row.ID, i+1)
		source := fmt.Sprintf("%s:%s#%s", row.Provider, row.MessageID, doc.Origin)
		res, err := s.composeText(source, doc.Text, "", s.cfg.IntakeFixYAML, row.ID, fallbackID)
		if err != nil {
			var perr *ParseError
			if errors.As(err, &perr) {
				log.Warn("document not parseable", slog.String("origin", doc.Origin), slog.Any("err", perr.Err))
				result.Failed++
				continue
			}
			_ = s.db.UpdateIntakeStatus(row.ID, internal.IntakeFailed)
			return result, err
		}
		result.Offers = append(result.Offers, res)
	}

	result.Status = internal.IntakeProcessed
	if len(result.Offers) == 0 {
		result.Status = internal.IntakeFailed
	}
	if err := s.db.UpdateIntakeStatus(row.ID, result.Status); err != nil {
		return result, err
	}
	log.Info("intake processed", slog.Int("offers", len(result.Offers)), slog.Int("failed", result.Failed))
	return result, nil
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
