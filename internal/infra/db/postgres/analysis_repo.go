package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	domain "github.com/oracare/oracare-api/internal/domain/analysis"
)

type AnalysisRepository struct{ db *sql.DB }

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository { return &AnalysisRepository{db: db} }

// Save insert/update Analysis record
func (r *AnalysisRepository) Save(ctx context.Context, a *domain.Analysis) error {
	const q = `
INSERT INTO analyses
(id, patient_id, image_url, risk, confidence, result_json, status, error, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO UPDATE SET
 patient_id = EXCLUDED.patient_id,
 image_url = EXCLUDED.image_url,
 risk = EXCLUDED.risk,
 confidence = EXCLUDED.confidence,
 result_json = EXCLUDED.result_json,
 status = EXCLUDED.status,
 error = EXCLUDED.error;`

	resultJSON, err := json.Marshal(a.Result)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	_, err = r.db.ExecContext(ctx, q,
		a.ID, a.PatientID, a.ImageURL,
		stringOrDash(string(a.Result.Risk)), a.Result.Confidence, resultJSON,
		stringOrDash(string(a.Status)), a.Error, created,
	)
	return err
}

// Get by ID
func (r *AnalysisRepository) Get(ctx context.Context, id domain.AnalysisID) (*domain.Analysis, error) {
	const q = `
SELECT id, patient_id, image_url, result_json, status, error, created_at
FROM analyses
WHERE id=$1
LIMIT 1;`
	return scanAnalysis(r.db.QueryRowContext(ctx, q, id))
}

// Latest analyses, newest first
func (r *AnalysisRepository) Latest(ctx context.Context, patientID string, limit int) ([]*domain.Analysis, error) {
	if limit <= 0 {
		limit = 20
	}
	var (
		rows *sql.Rows
		err  error
	)
	if patientID != "" {
		rows, err = r.db.QueryContext(ctx, `
SELECT id, patient_id, image_url, result_json, status, error, created_at
FROM analyses WHERE patient_id=$1
ORDER BY created_at DESC, id DESC LIMIT $2;`, patientID, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, `
SELECT id, patient_id, image_url, result_json, status, error, created_at
FROM analyses
ORDER BY created_at DESC, id DESC LIMIT $1;`, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAnalyses(rows)
}

// Paginate with offset + limit
func (r *AnalysisRepository) Paginate(ctx context.Context, patientID string, page, pageSize int) (domain.PaginatedResult, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	var (
		rows *sql.Rows
		err  error
	)
	if patientID != "" {
		rows, err = r.db.QueryContext(ctx, `
SELECT id, patient_id, image_url, result_json, status, error, created_at
FROM analyses WHERE patient_id=$1
ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3;`, patientID, pageSize, offset)
	} else {
		rows, err = r.db.QueryContext(ctx, `
SELECT id, patient_id, image_url, result_json, status, error, created_at
FROM analyses
ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2;`, pageSize, offset)
	}
	if err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("querying analyses: %w", err)
	}
	defer rows.Close()

	list, err := collectAnalyses(rows)
	if err != nil {
		return domain.PaginatedResult{}, err
	}

	total, err := r.count(ctx, patientID)
	if err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("getting total count: %w", err)
	}

	return domain.PaginatedResult{
		Data:       list,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

// Delete removes one analysis row
func (r *AnalysisRepository) Delete(ctx context.Context, id domain.AnalysisID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM analyses WHERE id=$1;`, id)
	return err
}

func (r *AnalysisRepository) count(ctx context.Context, patientID string) (int64, error) {
	var count int64
	var err error
	if patientID != "" {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analyses WHERE patient_id=$1;`, patientID).Scan(&count)
	} else {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analyses;`).Scan(&count)
	}
	return count, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAnalysis(row rowScanner) (*domain.Analysis, error) {
	var a domain.Analysis
	var resultJSON []byte
	if err := row.Scan(&a.ID, &a.PatientID, &a.ImageURL, &resultJSON, &a.Status, &a.Error, &a.CreatedAt); err != nil {
		return nil, err
	}
	if len(resultJSON) > 0 {
		if err := json.Unmarshal(resultJSON, &a.Result); err != nil {
			return nil, fmt.Errorf("unmarshaling result for %s: %w", a.ID, err)
		}
	}
	return &a, nil
}

func collectAnalyses(rows *sql.Rows) ([]*domain.Analysis, error) {
	var out []*domain.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
