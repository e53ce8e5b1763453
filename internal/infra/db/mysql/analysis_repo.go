package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	domain "github.com/oracare/oracare-api/internal/domain/analysis"
)

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Save insert/update Analysis record. The structured result is stored as JSON
// alongside the risk/confidence columns used for filtering.
func (r *AnalysisRepository) Save(ctx context.Context, a *domain.Analysis) error {
	const q = `
INSERT INTO analyses
(id, patient_id, image_url, risk, confidence, result_json, status, error, created_at)
VALUES (?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 patient_id=VALUES(patient_id), image_url=VALUES(image_url),
 risk=VALUES(risk), confidence=VALUES(confidence),
 result_json=VALUES(result_json), status=VALUES(status), error=VALUES(error);
`
	resultJSON, err := json.Marshal(a.Result)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	status := stringOrDash(string(a.Status))
	risk := stringOrDash(string(a.Result.Risk))
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	_, err = r.db.ExecContext(ctx, q,
		a.ID, a.PatientID, a.ImageURL,
		risk, a.Result.Confidence, resultJSON,
		status, a.Error, created,
	)
	return err
}

// Get by ID
func (r *AnalysisRepository) Get(ctx context.Context, id domain.AnalysisID) (*domain.Analysis, error) {
	const q = `
SELECT id, patient_id, image_url, result_json, status, error, created_at
FROM analyses
WHERE id=? LIMIT 1;
`
	return scanAnalysis(r.db.QueryRowContext(ctx, q, id))
}

// Latest analyses, newest first, optionally scoped to one patient
func (r *AnalysisRepository) Latest(ctx context.Context, patientID string, limit int) ([]*domain.Analysis, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
SELECT id, patient_id, image_url, result_json, status, error, created_at
FROM analyses`
	args := []interface{}{}
	if patientID != "" {
		query += "\nWHERE patient_id=?"
		args = append(args, patientID)
	}
	query += "\nORDER BY created_at DESC, id DESC LIMIT ?;"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAnalyses(rows)
}

// Paginate with offset + limit (classic pagination)
func (r *AnalysisRepository) Paginate(ctx context.Context, patientID string, page, pageSize int) (domain.PaginatedResult, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := `
SELECT id, patient_id, image_url, result_json, status, error, created_at
FROM analyses`
	args := []interface{}{}
	if patientID != "" {
		query += "\nWHERE patient_id=?"
		args = append(args, patientID)
	}
	query += "\nORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?;"
	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
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
	_, err := r.db.ExecContext(ctx, `DELETE FROM analyses WHERE id=?;`, id)
	return err
}

func (r *AnalysisRepository) count(ctx context.Context, patientID string) (int64, error) {
	query := "SELECT COUNT(*) FROM analyses"
	args := []interface{}{}
	if patientID != "" {
		query += " WHERE patient_id=?"
		args = append(args, patientID)
	}
	var count int64
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&count)
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
