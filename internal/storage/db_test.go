package storage

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentoffer/internal"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "offers.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func sampleOffer(id string) internal.Offer {
	return internal.Offer{
		OfferID:        id,
		FirstName:      "Li",
		LastName:       "Wei",
		Email:          "li.wei@example.com",
		StudentOrigin:  "OverseasStudent",
		AppliedCourses: []internal.AppliedCourse{{OfferID: id, CourseID: "CPC50220"}, {OfferID: id, CourseID: "BSB50120"}},
	}
}

func TestUpsertOfferReplacesAndResetsStatus(t *testing.T) {
	db := openTestDB(t)

	row, err := db.UpsertOffer(sampleOffer("OFFER_1"), "config.yaml", []string{"Title 'Sir' invalid -> 'Mr'"}, "/tmp/out.json")
	require.NoError(t, err)
	assert.Equal(t, internal.OfferComposed, row.Status)
	assert.Equal(t, []string{"Title 'Sir' invalid -> 'Mr'"}, row.Issues)

	require.NoError(t, db.UpdateOfferStatus("OFFER_1", internal.OfferRejected))

	row, err = db.UpsertOffer(sampleOffer("OFFER_1"), "config.yaml", nil, "/tmp/out.json")
	require.NoError(t, err)
	assert.Equal(t, internal.OfferComposed, row.Status)
	assert.Empty(t, row.Issues)
	assert.Contains(t, row.DocumentJSON, `"OfferId":"OFFER_1"`)

	all, err := db.ListOffersByStatus("", 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpdateOfferStatusUnknown(t *testing.T) {
	db := openTestDB(t)
	assert.Error(t, db.UpdateOfferStatus("missing", internal.OfferSubmitted))

	row, err := db.GetOffer("missing")
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestSubmissionsAndExportRows(t *testing.T) {
	db := openTestDB(t)
	_, err := db.UpsertOffer(sampleOffer("OFFER_A"), "a.yaml", []string{"x", "y"}, "")
	require.NoError(t, err)
	_, err = db.UpsertOffer(sampleOffer("OFFER_B"), "b.yaml", nil, "")
	require.NoError(t, err)

	_, err = db.InsertSubmission("OFFER_A", internal.SubmissionValidate, 200, `{"IsSuccess":true}`)
	require.NoError(t, err)
	_, err = db.InsertSubmission("OFFER_A", internal.SubmissionSubmit, 500, `oops`)
	require.NoError(t, err)
	require.NoError(t, db.UpdateOfferStatus("OFFER_A", internal.OfferFailed))

	subs, err := db.ListSubmissions("OFFER_A")
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, internal.SubmissionValidate, subs[0].Kind)
	assert.Equal(t, 500, subs[1].StatusCode)

	rows, err := db.GetExportRows("")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "OFFER_A", rows[0].OfferID)
	assert.Equal(t, 2, rows[0].IssueCount)
	require.NotNil(t, rows[0].LastHTTPCode)
	assert.Equal(t, 500, *rows[0].LastHTTPCode)
	assert.Equal(t, "CPC50220, BSB50120", rows[0].CourseIDs)
	assert.Nil(t, rows[1].LastHTTPCode)

	composed, err := db.GetExportRows(internal.OfferComposed)
	require.NoError(t, err)
	require.Len(t, composed, 1)
	assert.Equal(t, "OFFER_B", composed[0].OfferID)
}

func TestIntakeMessagesAndMetadata(t *testing.T) {
	db := openTestDB(t)

	row, err := db.UpsertIntakeMessage("imap", "42", "Application", "agent@example.com", "2026-10-01T10:00:00Z", "abc", "/raw/abc.eml", "fetched")
	require.NoError(t, err)
	again, err := db.UpsertIntakeMessage("imap", "42", "Application (fwd)", "agent@example.com", "2026-10-01T10:00:00Z", "abc", "/raw/abc.eml", "fetched")
	require.NoError(t, err)
	assert.Equal(t, row.ID, again.ID)
	assert.Equal(t, "Application (fwd)", again.Subject)

	pending, err := db.ListIntakeByStatus("fetched", "", 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	require.NoError(t, db.UpdateIntakeStatus(row.ID, "processed"))
	pending, err = db.ListIntakeByStatus("fetched", "", 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.NoError(t, db.InsertRun("trace-1", "OFFER_A", row.ID, map[string]float64{"compose_ms": 1}, map[string]int{"issues": 0}))
	n, err := db.CountRuns("OFFER_A")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	value, err := db.GetMetadata("imap_last_uid")
	require.NoError(t, err)
	assert.Nil(t, value)
	require.NoError(t, db.SetMetadata("imap_last_uid", "42"))
	value, err = db.GetMetadata("imap_last_uid")
	require.NoError(t, err)
	require.NotNil(t, value)
	assert.Equal(t, "42", *value)
}

func TestListIntakeByStatusFiltersProviderBeforeLimit(t *testing.T) {
	db := openTestDB(t)

	for i, ts := range []string{"2026-10-01T09:00:00Z", "2026-10-01T09:05:00Z", "2026-10-01T09:10:00Z"} {
		id := fmt.Sprintf("imap-%d", i)
		_, err := db.UpsertIntakeMessage("imap", id, "Application", "agent@example.com", ts, id, "/raw/"+id+".eml", "fetched")
		require.NoError(t, err)
	}
	_, err := db.UpsertIntakeMessage("gmail", "g-1", "Application", "agent@example.com", "2026-10-01T11:00:00Z", "g1", "/raw/g1.eml", "fetched")
	require.NoError(t, err)

	gmail, err := db.ListIntakeByStatus("fetched", "gmail", 1)
	require.NoError(t, err)
	require.Len(t, gmail, 1)
	assert.Equal(t, "g-1", gmail[0].MessageID)

	imap, err := db.ListIntakeByStatus("fetched", "imap", 2)
	require.NoError(t, err)
	require.Len(t, imap, 2)
	assert.Equal(t, "imap-0", imap[0].MessageID)

	all, err := db.ListIntakeByStatus("fetched", "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}
