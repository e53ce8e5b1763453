package patients

import "context"

// Repository port (interface untuk persistence)
type Repository interface {
	Save(ctx context.Context, p *Patient) error
	Get(ctx context.Context, id PatientID) (*Patient, error)
	List(ctx context.Context, limit int) ([]*Patient, error)
	Delete(ctx context.Context, id PatientID) error
}
