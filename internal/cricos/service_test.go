package cricos

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentoffer/internal"
	"studentoffer/internal/storage"
)

func newTestService(t *testing.T, rt roundTripFunc) (*SubmissionService, *storage.DB) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "offers.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSubmissionService(db, newTestClient(testConfig(), rt), log), db
}

func storeOffer(t *testing.T, db *storage.DB, id string) {
	t.Helper()
	_, err := db.UpsertOffer(internal.Offer{OfferID: id, FirstName: "Li"}, "test", nil, "")
	require.NoError(t, err)
}

func TestSubmitWithValidationRejected(t *testing.T) {
	submitted := false
	svc, db := newTestService(t, func(r *http.Request) (*http.Response, error) {
		switch r.URL.Path {
		case "/token":
			return tokenHandler(t, r), nil
		case ValidatePath:
			return jsonResponse(http.StatusOK, `{"IsSuccess":false,"itemList":{"E1":"Missing passport"}}`), nil
		default:
			submitted = true
			return jsonResponse(http.StatusOK, `{}`), nil
		}
	})
	storeOffer(t, db, "OFFER_R")

	out, err := svc.SubmitWithValidation(context.Background(), "OFFER_R", true)
	require.NoError(t, err)
	assert.False(t, submitted)
	assert.Equal(t, internal.OfferRejected, out.Status)
	assert.Equal(t, StageValidation, out.Stage)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, "Missing passport", out.Errors[0].Message)

	row, err := db.MustOffer("OFFER_R")
	require.NoError(t, err)
	assert.Equal(t, internal.OfferRejected, row.Status)

	subs, err := db.ListSubmissions("OFFER_R")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, internal.SubmissionValidate, subs[0].Kind)
}

func TestSubmitWithValidationValidateOnly(t *testing.T) {
	svc, db := newTestService(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path == "/token" {
			return tokenHandler(t, r), nil
		}
		require.Equal(t, ValidatePath, r.URL.Path)
		return jsonResponse(http.StatusOK, `{"IsSuccess":true}`), nil
	})
	storeOffer(t, db, "OFFER_V")

	out, err := svc.SubmitWithValidation(context.Background(), "OFFER_V", false)
	require.NoError(t, err)
	assert.Equal(t, internal.OfferValidated, out.Status)
	assert.Nil(t, out.Submit)
}

func TestSubmitPending(t *testing.T) {
	svc, db := newTestService(t, func(r *http.Request) (*http.Response, error) {
		switch r.URL.Path {
		case "/token":
			return tokenHandler(t, r), nil
		case ValidatePath:
			return jsonResponse(http.StatusOK, `{"IsSuccess":true}`), nil
		default:
			body, _ := io.ReadAll(r.Body)
			if strings.Contains(string(body), "OFFER_B") {
				return jsonResponse(http.StatusBadRequest, `{"Message":"duplicate"}`), nil
			}
			return jsonResponse(http.StatusCreated, `{"Id":1}`), nil
		}
	})
	storeOffer(t, db, "OFFER_A")
	storeOffer(t, db, "OFFER_B")

	outcomes, err := svc.SubmitPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	status := map[string]internal.OfferStatus{}
	for _, o := range outcomes {
		status[o.OfferID] = o.Status
	}
	assert.Equal(t, internal.OfferSubmitted, status["OFFER_A"])
	assert.Equal(t, internal.OfferFailed, status["OFFER_B"])

	pending, err := db.ListOffersByStatus(internal.OfferComposed, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	last, err := db.GetMetadata("cricos.last_submit_pending")
	require.NoError(t, err)
	assert.NotNil(t, last)
}

func TestSubmitWithValidationUnknownOffer(t *testing.T) {
	svc, _ := newTestService(t, func(r *http.Request) (*http.Response, error) {
		t.Fatalf("no request expected")
		return nil, nil
	})
	_, err := svc.SubmitWithValidation(context.Background(), "missing", true)
	assert.Error(t, err)
}
