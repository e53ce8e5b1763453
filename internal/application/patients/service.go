package patients

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oracare/oracare-api/internal/application"
	domain "github.com/oracare/oracare-api/internal/domain/patients"
)

// ErrNotFound is returned when a patient id resolves to no row.
var ErrNotFound = errors.New("patient not found")

// ErrInvalid marks rejected input so the transport layer can answer 400.
var ErrInvalid = errors.New("invalid patient data")

// Service implements patient record use-cases. CRUD over the repository with
// input validation; no transactional multi-row guarantees are needed.
type Service struct {
	Repo  domain.Repository
	Clock application.Clock
	Log   *zap.Logger
}

// CreateCommand carries the writable patient fields.
type CreateCommand struct {
	PatientCode          string `json:"patient_code"`
	Name                 string `json:"name"`
	Age                  int    `json:"age"`
	Gender               string `json:"gender"`
	Tobacco              string `json:"tobacco"`
	Smoking              string `json:"smoking"`
	PanMasala            string `json:"pan_masala"`
	SymptomDuration      string `json:"symptom_duration"`
	PainLevel            string `json:"pain_level"`
	DifficultySwallowing string `json:"difficulty_swallowing"`
	WeightLoss           string `json:"weight_loss"`
	FamilyHistory        string `json:"family_history"`
	ImmuneCompromised    string `json:"immune_compromised"`
	PersistentSoreThroat string `json:"persistent_sore_throat"`
	VoiceChanges         string `json:"voice_changes"`
	LumpsInNeck          string `json:"lumps_in_neck"`
	FrequentMouthSores   string `json:"frequent_mouth_sores"`
	PoorDentalHygiene    string `json:"poor_dental_hygiene"`
}

func (c CreateCommand) validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if c.Age < 0 || c.Age > 150 {
		return fmt.Errorf("%w: age out of range", ErrInvalid)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*domain.Patient, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}
	now := s.Clock.Now()
	p := &domain.Patient{
		ID:                   domain.PatientID(uuid.New().String()),
		PatientCode:          cmd.PatientCode,
		Name:                 cmd.Name,
		Age:                  cmd.Age,
		Gender:               cmd.Gender,
		Tobacco:              cmd.Tobacco,
		Smoking:              cmd.Smoking,
		PanMasala:            cmd.PanMasala,
		SymptomDuration:      cmd.SymptomDuration,
		PainLevel:            cmd.PainLevel,
		DifficultySwallowing: cmd.DifficultySwallowing,
		WeightLoss:           cmd.WeightLoss,
		FamilyHistory:        cmd.FamilyHistory,
		ImmuneCompromised:    cmd.ImmuneCompromised,
		PersistentSoreThroat: cmd.PersistentSoreThroat,
		VoiceChanges:         cmd.VoiceChanges,
		LumpsInNeck:          cmd.LumpsInNeck,
		FrequentMouthSores:   cmd.FrequentMouthSores,
		PoorDentalHygiene:    cmd.PoorDentalHygiene,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.Repo.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("saving patient: %w", err)
	}
	s.Log.Info("patient created", zap.String("id", string(p.ID)))
	return p, nil
}

func (s *Service) Get(ctx context.Context, id domain.PatientID) (*domain.Patient, error) {
	p, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, limit int) ([]*domain.Patient, error) {
	return s.Repo.List(ctx, limit)
}

// Update applies the writable fields onto an existing patient.
func (s *Service) Update(ctx context.Context, id domain.PatientID, cmd CreateCommand) (*domain.Patient, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	existing.PatientCode = cmd.PatientCode
	existing.Name = cmd.Name
	existing.Age = cmd.Age
	existing.Gender = cmd.Gender
	existing.Tobacco = cmd.Tobacco
	existing.Smoking = cmd.Smoking
	existing.PanMasala = cmd.PanMasala
	existing.SymptomDuration = cmd.SymptomDuration
	existing.PainLevel = cmd.PainLevel
	existing.DifficultySwallowing = cmd.DifficultySwallowing
	existing.WeightLoss = cmd.WeightLoss
	existing.FamilyHistory = cmd.FamilyHistory
	existing.ImmuneCompromised = cmd.ImmuneCompromised
	existing.PersistentSoreThroat = cmd.PersistentSoreThroat
	existing.VoiceChanges = cmd.VoiceChanges
	existing.LumpsInNeck = cmd.LumpsInNeck
	existing.FrequentMouthSores = cmd.FrequentMouthSores
	existing.PoorDentalHygiene = cmd.PoorDentalHygiene
	existing.UpdatedAt = s.Clock.Now()

	if err := s.Repo.Save(ctx, existing); err != nil {
		return nil, fmt.Errorf("updating patient: %w", err)
	}
	return existing, nil
}

func (s *Service) Delete(ctx context.Context, id domain.PatientID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.Repo.Delete(ctx, id)
}
