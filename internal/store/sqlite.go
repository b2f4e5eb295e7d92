package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/inspection-review/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS submissions (
	id              TEXT PRIMARY KEY,
	owner_id        TEXT NOT NULL,
	file_name       TEXT NOT NULL,
	form_type       TEXT NOT NULL DEFAULT 'inspection',
	pdf_storage_key TEXT NOT NULL DEFAULT '',
	data            TEXT NOT NULL,
	facility_name   TEXT NOT NULL,
	permit_number   TEXT NOT NULL,
	inspection_date TEXT NOT NULL,
	inspector_name  TEXT NOT NULL,
	overall_status  TEXT NOT NULL,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_submissions_owner ON submissions(owner_id, created_at);
CREATE INDEX IF NOT EXISTS idx_submissions_facility ON submissions(facility_name);
CREATE INDEX IF NOT EXISTS idx_submissions_status ON submissions(overall_status);
`

const sqliteColumns = `id, owner_id, file_name, form_type, pdf_storage_key, data, created_at, updated_at`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateSubmission(ctx context.Context, in model.NewSubmission) (*model.Submission, error) {
	sub := newSubmission(in, time.Now().UTC())

	dataJSON, err := json.Marshal(sub.Data)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal data")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO submissions (id, owner_id, file_name, form_type, pdf_storage_key, data,
			facility_name, permit_number, inspection_date, inspector_name, overall_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.OwnerID, sub.FileName, sub.FormType, sub.PDFStorageKey, string(dataJSON),
		sub.Index.FacilityName, sub.Index.PermitNumber, sub.Index.InspectionDate, sub.Index.InspectorName,
		string(sub.Index.OverallStatus), sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert submission")
	}
	return sub, nil
}

func (s *SQLiteStore) UpdateSubmissionData(ctx context.Context, id string, data *model.InspectionData) (*model.Submission, error) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal data")
	}
	idx := model.IndexOf(data)

	res, err := s.db.ExecContext(ctx,
		`UPDATE submissions SET data = ?, facility_name = ?, permit_number = ?, inspection_date = ?,
			inspector_name = ?, overall_status = ?, updated_at = ? WHERE id = ?`,
		string(dataJSON), idx.FacilityName, idx.PermitNumber, idx.InspectionDate,
		idx.InspectorName, string(idx.OverallStatus), time.Now().UTC(), id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: update submission %s", id)
	}
	if err := requireRow(res); err != nil {
		return nil, err
	}
	return s.GetSubmission(ctx, id)
}

func (s *SQLiteStore) AttachPDF(ctx context.Context, id, key string) (*model.Submission, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE submissions SET pdf_storage_key = ?, updated_at = ? WHERE id = ?`,
		key, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: attach pdf %s", id)
	}
	if err := requireRow(res); err != nil {
		return nil, err
	}
	return s.GetSubmission(ctx, id)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) GetSubmission(ctx context.Context, id string) (*model.Submission, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteColumns+` FROM submissions WHERE id = ?`, id)
	sub, err := scanSubmission(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get submission %s", id)
	}
	return sub, nil
}

func (s *SQLiteStore) ListSubmissions(ctx context.Context, filter model.SubmissionFilter) ([]model.Submission, error) {
	query := `SELECT ` + sqliteColumns + ` FROM submissions WHERE 1=1`
	var args []any

	if filter.OwnerID != "" {
		query += ` AND owner_id = ?`
		args = append(args, filter.OwnerID)
	}
	if filter.FacilityName != "" {
		query += ` AND facility_name LIKE ?`
		args = append(args, "%"+filter.FacilityName+"%")
	}
	if filter.OverallStatus != "" {
		query += ` AND overall_status = ?`
		args = append(args, string(filter.OverallStatus))
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, listLimit(filter), max(filter.Offset, 0))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list submissions")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan submission")
		}
		out = append(out, *sub)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate submissions")
}

// scanSubmission reads one row selected with the shared column list.
func scanSubmission(scan func(dest ...any) error) (*model.Submission, error) {
	var (
		sub      model.Submission
		dataJSON []byte
	)
	if err := scan(&sub.ID, &sub.OwnerID, &sub.FileName, &sub.FormType, &sub.PDFStorageKey,
		&dataJSON, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(dataJSON, &sub.Data); err != nil {
		return nil, eris.Wrapf(err, "unmarshal data of %s", sub.ID)
	}
	sub.Index = model.IndexOf(&sub.Data)
	return &sub, nil
}

// newSubmission builds the record both stores insert.
func newSubmission(in model.NewSubmission, now time.Time) *model.Submission {
	formType := in.FormType
	if formType == "" {
		formType = model.DefaultFormType
	}
	sub := &model.Submission{
		ID:            uuid.New().String(),
		OwnerID:       in.OwnerID,
		FileName:      in.FileName,
		FormType:      formType,
		PDFStorageKey: in.PDFStorageKey,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.Data != nil {
		sub.Data = *in.Data.Clone()
	}
	sub.Index = model.IndexOf(&sub.Data)
	return sub
}
