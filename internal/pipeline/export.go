package pipeline

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"studentoffer/internal"
)

// MarshalOffer renders the offer the way it is written to disk: two-space
// indentation with HTML characters and non-ASCII text left unescaped.
func MarshalOffer(offer internal.Offer) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(offer); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func WriteOfferJSON(offer internal.Offer, outputPath string) (string, error) {
	abs, err := filepath.Abs(outputPath)
	if err != nil {
		return "", err
	}
	blob, err := MarshalOffer(offer)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", err
	}
	return abs, os.WriteFile(abs, blob, 0o644)
}

func LoadOfferJSON(path string) (internal.Offer, []byte, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return internal.Offer{}, nil, err
	}
	var offer internal.Offer
	if err := json.Unmarshal(blob, &offer); err != nil {
		return internal.Offer{}, nil, err
	}
	return offer, blob, nil
}

func ExportOffersToXLSX(rows []internal.OfferExportRow, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	const offersSheet, issuesSheet = "Offers", "Issues"
	if err := f.SetSheetName(f.GetSheetName(0), offersSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(issuesSheet); err != nil {
		return err
	}

	headers := []string{
		"offer_id", "source", "status", "first_name", "last_name", "email",
		"student_origin", "course_ids", "issue_count", "last_http_status", "updated_at",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(offersSheet, cell, h)
	}
	for i, h := range []string{"offer_id", "issue"} {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(issuesSheet, cell, h)
	}

	issueRow := 2
	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(offersSheet, cell, value)
		}

		set(1, row.OfferID)
		set(2, row.Source)
		set(3, row.Status)
		set(4, row.FirstName)
		set(5, row.LastName)
		set(6, row.Email)
		set(7, row.StudentOrigin)
		set(8, row.CourseIDs)
		set(9, row.IssueCount)
		set(10, derefInt(row.LastHTTPCode))
		set(11, row.UpdatedAt)

		for _, issue := range row.Issues {
			a, _ := excelize.CoordinatesToCellName(1, issueRow)
			b, _ := excelize.CoordinatesToCellName(2, issueRow)
			_ = f.SetCellValue(issuesSheet, a, row.OfferID)
			_ = f.SetCellValue(issuesSheet, b, issue)
			issueRow++
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func CourseIDs(offer internal.Offer) string {
	ids := make([]string, 0, len(offer.AppliedCourses))
	for _, c := range offer.AppliedCourses {
		ids = append(ids, c.CourseID)
	}
	return strings.Join(ids, ", ")
}

func derefInt(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}
