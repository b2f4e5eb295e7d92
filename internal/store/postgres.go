package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/inspection-review/internal/db"
	"github.com/sells-group/inspection-review/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const pgColumns = `id, owner_id, file_name, form_type, pdf_storage_key, data, created_at, updated_at`

// preparedStatements are prepared on each new connection.
var preparedStatements = map[string]string{
	"insert_submission": `INSERT INTO submissions (id, owner_id, file_name, form_type, pdf_storage_key, data,
		facility_name, permit_number, inspection_date, inspector_name, overall_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
	"update_submission_data": `UPDATE submissions SET data = $1, facility_name = $2, permit_number = $3,
		inspection_date = $4, inspector_name = $5, overall_status = $6, updated_at = $7
		WHERE id = $8 RETURNING ` + pgColumns,
	"attach_pdf":     `UPDATE submissions SET pdf_storage_key = $1, updated_at = $2 WHERE id = $3 RETURNING ` + pgColumns,
	"get_submission": `SELECT ` + pgColumns + ` FROM submissions WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS submissions (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	owner_id        TEXT NOT NULL,
	file_name       TEXT NOT NULL,
	form_type       TEXT NOT NULL DEFAULT 'inspection',
	pdf_storage_key TEXT NOT NULL DEFAULT '',
	data            JSONB NOT NULL,
	facility_name   TEXT NOT NULL,
	permit_number   TEXT NOT NULL,
	inspection_date TEXT NOT NULL,
	inspector_name  TEXT NOT NULL,
	overall_status  TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_submissions_owner ON submissions(owner_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_submissions_facility ON submissions(lower(facility_name));
CREATE INDEX IF NOT EXISTS idx_submissions_status ON submissions(overall_status);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateSubmission(ctx context.Context, in model.NewSubmission) (*model.Submission, error) {
	sub := newSubmission(in, time.Now().UTC())

	dataJSON, err := json.Marshal(sub.Data)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal data")
	}

	_, err = s.pool.Exec(ctx, preparedStatements["insert_submission"],
		sub.ID, sub.OwnerID, sub.FileName, sub.FormType, sub.PDFStorageKey, dataJSON,
		sub.Index.FacilityName, sub.Index.PermitNumber, sub.Index.InspectionDate, sub.Index.InspectorName,
		string(sub.Index.OverallStatus), sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert submission")
	}
	return sub, nil
}

func (s *PostgresStore) UpdateSubmissionData(ctx context.Context, id string, data *model.InspectionData) (*model.Submission, error) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal data")
	}
	idx := model.IndexOf(data)

	row := s.pool.QueryRow(ctx, preparedStatements["update_submission_data"],
		dataJSON, idx.FacilityName, idx.PermitNumber, idx.InspectionDate,
		idx.InspectorName, string(idx.OverallStatus), time.Now().UTC(), id,
	)
	return s.scanOne(row, "update submission", id)
}

func (s *PostgresStore) AttachPDF(ctx context.Context, id, key string) (*model.Submission, error) {
	row := s.pool.QueryRow(ctx, preparedStatements["attach_pdf"], key, time.Now().UTC(), id)
	return s.scanOne(row, "attach pdf", id)
}

func (s *PostgresStore) GetSubmission(ctx context.Context, id string) (*model.Submission, error) {
	row := s.pool.QueryRow(ctx, preparedStatements["get_submission"], id)
	return s.scanOne(row, "get submission", id)
}

func (s *PostgresStore) scanOne(row pgx.Row, op, id string) (*model.Submission, error) {
	sub, err := scanSubmission(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: %s %s", op, id)
	}
	return sub, nil
}

func (s *PostgresStore) ListSubmissions(ctx context.Context, filter model.SubmissionFilter) ([]model.Submission, error) {
	query := `SELECT ` + pgColumns + ` FROM submissions WHERE true`
	args := []any{}
	argIdx := 1

	if filter.OwnerID != "" {
		query += fmt.Sprintf(` AND owner_id = $%d`, argIdx)
		args = append(args, filter.OwnerID)
		argIdx++
	}
	if filter.FacilityName != "" {
		query += fmt.Sprintf(` AND facility_name ILIKE $%d`, argIdx)
		args = append(args, "%"+filter.FacilityName+"%")
		argIdx++
	}
	if filter.OverallStatus != "" {
		query += fmt.Sprintf(` AND overall_status = $%d`, argIdx)
		args = append(args, string(filter.OverallStatus))
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list submissions")
	}
	defer rows.Close()

	var out []model.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan submission")
		}
		out = append(out, *sub)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate submissions")
}
