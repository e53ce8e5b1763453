package analysis

import "context"

// Repository port (interface untuk persistence)
type Repository interface {
	Save(ctx context.Context, a *Analysis) error
	Get(ctx context.Context, id AnalysisID) (*Analysis, error)
	Latest(ctx context.Context, patientID string, limit int) ([]*Analysis, error)
	Paginate(ctx context.Context, patientID string, page, pageSize int) (PaginatedResult, error)
	Delete(ctx context.Context, id AnalysisID) error
}

// ResultCache port: memoization hasil klasifikasi per image fingerprint
type ResultCache interface {
	Get(fingerprint string) (ClassificationResult, bool)
	Put(fingerprint string, result ClassificationResult)
}

// ImageStore port (interface untuk penyimpanan gambar submitted)
type ImageStore interface {
	UploadImage(ctx context.Context, data []byte, key, contentType string) (string, error)
}
