package cricos

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"studentoffer/internal"
	"studentoffer/internal/storage"
)

const (
	StageValidation = "validation"
	StageSubmission = "submission"
)

type SubmissionService struct {
	db     *storage.DB
	client *Client
	log    *slog.Logger
}

func NewSubmissionService(db *storage.DB, client *Client, log *slog.Logger) *SubmissionService {
	if log == nil {
		log = slog.Default()
	}
	return &SubmissionService{db: db, client: client, log: log}
}

type Outcome struct {
	OfferID  string
	Stage    string
	Status   internal.OfferStatus
	Validate *Result
	Submit   *Result
	Errors   []ValidationError
}

// SubmitWithValidation validates a stored offer and, when it passes and
// submit is set, submits it. Every API answer is recorded against the offer.
func (s *SubmissionService) SubmitWithValidation(ctx context.Context, offerID string, submit bool) (Outcome, error) {
	row, err := s.db.MustOffer(offerID)
	if err != nil {
		return Outcome{}, err
	}
	log := s.log.With(slog.String("offer_id", offerID))
	out := Outcome{OfferID: offerID, Stage: StageValidation}
	payload := []byte(row.DocumentJSON)

	v, err := s.client.Validate(ctx, payload)
	if err != nil {
		return out, fmt.Errorf("validate %s: %w", offerID, err)
	}
	out.Validate = &v
	if _, err := s.db.InsertSubmission(offerID, internal.SubmissionValidate, v.StatusCode, string(v.Body)); err != nil {
		return out, err
	}

	if !ValidationPassed(v) {
		out.Status = internal.OfferRejected
		out.Errors = ParseValidationErrors(v.Body)
		log.Warn("offer rejected", slog.Int("status", v.StatusCode), slog.Int("errors", len(out.Errors)))
		return out, s.db.UpdateOfferStatus(offerID, out.Status)
	}

	out.Status = internal.OfferValidated
	if !submit {
		log.Info("offer validated", slog.Int("status", v.StatusCode))
		return out, s.db.UpdateOfferStatus(offerID, out.Status)
	}

	out.Stage = StageSubmission
	res, err := s.client.Submit(ctx, payload)
	if err != nil {
		_ = s.db.UpdateOfferStatus(offerID, internal.OfferFailed)
		out.Status = internal.OfferFailed
		return out, fmt.Errorf("submit %s: %w", offerID, err)
	}
	out.Submit = &res
	if _, err := s.db.InsertSubmission(offerID, internal.SubmissionSubmit, res.StatusCode, string(res.Body)); err != nil {
		return out, err
	}

	out.Status = internal.OfferSubmitted
	if !res.OK() {
		out.Status = internal.OfferFailed
	}
	log.Info("offer submitted", slog.Int("status", res.StatusCode), slog.String("result", string(out.Status)))
	return out, s.db.UpdateOfferStatus(offerID, out.Status)
}

// SubmitPending walks composed offers oldest first. Requests are paced by the
// client's rate limiter.
func (s *SubmissionService) SubmitPending(ctx context.Context, limit int) ([]Outcome, error) {
	rows, err := s.db.ListOffersByStatus(internal.OfferComposed, limit)
	if err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, 0, len(rows))
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		out, err := s.SubmitWithValidation(ctx, row.OfferID, true)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, out)
	}

	_ = s.db.SetMetadata("cricos.last_submit_pending", time.Now().UTC().Format(time.RFC3339))
	return outcomes, nil
}
