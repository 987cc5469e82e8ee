package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"studentoffer/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS offers (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  offerId TEXT NOT NULL UNIQUE,
  source TEXT NOT NULL,
  firstName TEXT,
  lastName TEXT,
  email TEXT,
  studentOrigin TEXT,
  courseIds TEXT,
  documentJson TEXT NOT NULL,
  issuesJson TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'composed',
  outputPath TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_offers_status ON offers(status);

CREATE TABLE IF NOT EXISTS submissions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  offerId TEXT NOT NULL,
  kind TEXT NOT NULL,
  statusCode INTEGER NOT NULL,
  responseBody TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(offerId) REFERENCES offers(offerId)
);
CREATE INDEX IF NOT EXISTS idx_submissions_offerId ON submissions(offerId);

CREATE TABLE IF NOT EXISTS intake_messages (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  subject TEXT,
  sender TEXT,
  receivedAt TEXT,
  hash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'fetched',
  rawRef TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId)
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  offerId TEXT,
  intakeId INTEGER,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// UpsertOffer stores the composed document. Re-composing an existing offer id
// replaces the document and resets the status.
func (d *DB) UpsertOffer(offer internal.Offer, source string, issues []string, outputPath string) (internal.OfferRow, error) {
	docJSON, err := json.Marshal(offer)
	if err != nil {
		return internal.OfferRow{}, err
	}
	if issues == nil {
		issues = []string{}
	}
	issuesJSON, _ := json.Marshal(issues)

	courseIDs := make([]string, 0, len(offer.AppliedCourses))
	for _, c := range offer.AppliedCourses {
		courseIDs = append(courseIDs, c.CourseID)
	}

	_, err = d.conn.Exec(`
INSERT INTO offers (offerId, source, firstName, lastName, email, studentOrigin, courseIds, documentJson, issuesJson, status, outputPath)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(offerId) DO UPDATE SET
  source=excluded.source,
  firstName=excluded.firstName,
  lastName=excluded.lastName,
  email=excluded.email,
  studentOrigin=excluded.studentOrigin,
  courseIds=excluded.courseIds,
  documentJson=excluded.documentJson,
  issuesJson=excluded.issuesJson,
  status=excluded.status,
  outputPath=excluded.outputPath,
  updatedAt=CURRENT_TIMESTAMP
`, offer.OfferID, source, offer.FirstName, offer.LastName, offer.Email, offer.StudentOrigin,
		strings.Join(courseIDs, ", "), string(docJSON), string(issuesJSON), string(internal.OfferComposed), outputPath)
	if err != nil {
		return internal.OfferRow{}, err
	}

	row, err := d.GetOffer(offer.OfferID)
	if err != nil {
		return internal.OfferRow{}, err
	}
	if row == nil {
		return internal.OfferRow{}, errors.New("failed to upsert offer")
	}
	return *row, nil
}

const offerColumns = `id, offerId, source, documentJson, issuesJson, status, outputPath, createdAt, updatedAt`

func scanOffer(scan func(dest ...any) error) (internal.OfferRow, error) {
	var row internal.OfferRow
	var issuesJSON, status string
	var outputPath sql.NullString
	if err := scan(&row.ID, &row.OfferID, &row.Source, &row.DocumentJSON, &issuesJSON, &status, &outputPath, &row.CreatedAt, &row.UpdatedAt); err != nil {
		return internal.OfferRow{}, err
	}
	row.Status = internal.OfferStatus(status)
	row.OutputPath = outputPath.String
	_ = json.Unmarshal([]byte(issuesJSON), &row.Issues)
	if row.Issues == nil {
		row.Issues = []string{}
	}
	return row, nil
}

func (d *DB) GetOffer(offerID string) (*internal.OfferRow, error) {
	row, err := scanOffer(d.conn.QueryRow(`SELECT `+offerColumns+` FROM offers WHERE offerId = ?`, offerID).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) MustOffer(offerID string) (internal.OfferRow, error) {
	row, err := d.GetOffer(offerID)
	if err != nil {
		return internal.OfferRow{}, err
	}
	if row == nil {
		return internal.OfferRow{}, fmt.Errorf("offer not found: offerId=%s", offerID)
	}
	return *row, nil
}

// ListOffersByStatus returns offers oldest first. An empty status lists all.
func (d *DB) ListOffersByStatus(status internal.OfferStatus, limit int) ([]internal.OfferRow, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `SELECT ` + offerColumns + ` FROM offers`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY createdAt ASC, id ASC LIMIT ?`
	args = append(args, limit)

	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.OfferRow
	for rows.Next() {
		row, err := scanOffer(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateOfferStatus(offerID string, status internal.OfferStatus) error {
	result, err := d.conn.Exec(`UPDATE offers SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE offerId = ?`, string(status), offerID)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("offer not found: offerId=%s", offerID)
	}
	return nil
}

func (d *DB) InsertSubmission(offerID string, kind internal.SubmissionKind, statusCode int, body string) (int64, error) {
	result, err := d.conn.Exec(`
INSERT INTO submissions (offerId, kind, statusCode, responseBody) VALUES (?, ?, ?, ?)
`, offerID, string(kind), statusCode, body)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (d *DB) ListSubmissions(offerID string) ([]internal.SubmissionRow, error) {
	rows, err := d.conn.Query(`
SELECT id, offerId, kind, statusCode, responseBody, createdAt
FROM submissions WHERE offerId = ? ORDER BY id ASC
`, offerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.SubmissionRow
	for rows.Next() {
		var row internal.SubmissionRow
		var kind string
		if err := rows.Scan(&row.ID, &row.OfferID, &kind, &row.StatusCode, &row.ResponseBody, &row.CreatedAt); err != nil {
			return nil, err
		}
		row.Kind = internal.SubmissionKind(kind)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpsertIntakeMessage(provider, messageID, subject, sender, receivedAt, hash, rawRef, status string) (internal.IntakeRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO intake_messages (provider, messageId, subject, sender, receivedAt, hash, status, rawRef)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, messageId) DO UPDATE SET
  subject=excluded.subject,
  sender=excluded.sender,
  receivedAt=excluded.receivedAt,
  hash=excluded.hash,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, provider, messageID, subject, sender, receivedAt, hash, status, rawRef)
	if err != nil {
		return internal.IntakeRow{}, err
	}

	row, err := d.GetIntakeByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.IntakeRow{}, err
	}
	if row == nil {
		return internal.IntakeRow{}, errors.New("failed to upsert intake message")
	}
	return *row, nil
}

func (d *DB) GetIntakeByProviderMessageID(provider, messageID string) (*internal.IntakeRow, error) {
	var row internal.IntakeRow
	err := d.conn.QueryRow(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM intake_messages WHERE provider = ? AND messageId = ?
`, provider, messageID).Scan(
		&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ListIntakeByStatus lists messages oldest first. An empty provider matches
// every provider; the filter runs before the limit.
func (d *DB) ListIntakeByStatus(status, provider string, limit int) ([]internal.IntakeRow, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := d.conn.Query(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM intake_messages WHERE status = ? AND (? = '' OR provider = ?)
ORDER BY receivedAt ASC, id ASC LIMIT ?
`, status, provider, provider, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.IntakeRow
	for rows.Next() {
		var row internal.IntakeRow
		if err := rows.Scan(&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateIntakeStatus(intakeID int, status string) error {
	_, err := d.conn.Exec(`UPDATE intake_messages SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, intakeID)
	return err
}

func (d *DB) InsertRun(traceID, offerID string, intakeID int, timings map[string]float64, counts map[string]int) error {
	timingsJSON, _ := json.Marshal(timings)
	countsJSON, _ := json.Marshal(counts)
	var intake any
	if intakeID > 0 {
		intake = intakeID
	}
	_, err := d.conn.Exec(`INSERT INTO runs (traceId, offerId, intakeId, timingsJson, countsJson) VALUES (?, ?, ?, ?, ?)`,
		traceID, offerID, intake, string(timingsJSON), string(countsJSON))
	return err
}

func (d *DB) CountRuns(offerID string) (int, error) {
	var n int
	err := d.conn.QueryRow(`SELECT COUNT(*) FROM runs WHERE offerId = ?`, offerID).Scan(&n)
	return n, err
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

// GetExportRows joins each offer with its most recent submission status.
func (d *DB) GetExportRows(status internal.OfferStatus) ([]internal.OfferExportRow, error) {
	query := `
SELECT
  o.offerId,
  o.source,
  o.status,
  o.firstName,
  o.lastName,
  o.email,
  o.studentOrigin,
  o.courseIds,
  o.issuesJson,
  (SELECT s.statusCode FROM submissions s WHERE s.offerId = o.offerId ORDER BY s.id DESC LIMIT 1),
  o.updatedAt
FROM offers o`
	args := []any{}
	if status != "" {
		query += ` WHERE o.status = ?`
		args = append(args, string(status))
	}
	query += `
ORDER BY
  CASE o.status WHEN 'rejected' THEN 1 WHEN 'failed' THEN 2 WHEN 'composed' THEN 3 ELSE 4 END,
  o.createdAt ASC`

	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.OfferExportRow
	for rows.Next() {
		var row internal.OfferExportRow
		var first, last, email, origin, courses sql.NullString
		var issuesJSON string
		var code sql.NullInt64
		if err := rows.Scan(
			&row.OfferID,
			&row.Source,
			&row.Status,
			&first,
			&last,
			&email,
			&origin,
			&courses,
			&issuesJSON,
			&code,
			&row.UpdatedAt,
		); err != nil {
			return nil, err
		}
		row.FirstName = first.String
		row.LastName = last.String
		row.Email = email.String
		row.StudentOrigin = origin.String
		row.CourseIDs = courses.String
		_ = json.Unmarshal([]byte(issuesJSON), &row.Issues)
		row.IssueCount = len(row.Issues)
		if code.Valid {
			v := int(code.Int64)
			row.LastHTTPCode = &v
		}
		out = append(out, row)
	}

	return out, rows.Err()
}
