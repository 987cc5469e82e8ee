package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"studentoffer/internal"
)

func TestWriteAndLoadOfferJSON(t *testing.T) {
	offer, _ := fixedComposer().Compose(map[string]any{
		"student_info": map[string]any{"first_name": "<李> & co"},
	})
	path := filepath.Join(t.TempDir(), "nested", "dir", "output.json")

	abs, err := WriteOfferJSON(offer, path)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(abs))

	blob, err := os.ReadFile(abs)
	require.NoError(t, err)
	assert.Contains(t, string(blob), `"FirstName": "<李> & co"`)
	assert.True(t, strings.HasPrefix(string(blob), "{\n  \"OfferId\""))

	loaded, raw, err := LoadOfferJSON(abs)
	require.NoError(t, err)
	assert.Equal(t, blob, raw)
	assert.Equal(t, offer, loaded)
}

func TestLoadOfferJSONInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{nope"), 0o644))
	_, _, err := LoadOfferJSON(path)
	assert.Error(t, err)
}

func TestExportOffersToXLSX(t *testing.T) {
	code := 400
	rows := []internal.OfferExportRow{
		{OfferID: "OFFER_1", Status: "rejected", FirstName: "Li", CourseIDs: "CPC50220", IssueCount: 2, Issues: []string{"a", "b"}, LastHTTPCode: &code},
		{OfferID: "OFFER_2", Status: "composed", FirstName: "Ana"},
	}
	path := filepath.Join(t.TempDir(), "offers.xlsx")
	require.NoError(t, ExportOffersToXLSX(rows, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	offers, err := f.GetRows("Offers")
	require.NoError(t, err)
	require.Len(t, offers, 3)
	assert.Equal(t, "offer_id", offers[0][0])
	assert.Equal(t, "OFFER_1", offers[1][0])
	assert.Equal(t, "400", offers[1][9])

	issues, err := f.GetRows("Issues")
	require.NoError(t, err)
	require.Len(t, issues, 3)
	assert.Equal(t, []string{"OFFER_1", "b"}, issues[2])
}

func TestCourseIDs(t *testing.T) {
	offer := internal.Offer{AppliedCourses: []internal.AppliedCourse{{CourseID: "A"}, {CourseID: "B"}}}
	assert.Equal(t, "A, B", CourseIDs(offer))
}
