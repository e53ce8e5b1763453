package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	domain "github.com/oracare/oracare-api/internal/domain/patients"
)

type PatientRepository struct{ db *sql.DB }

func NewPatientRepository(db *sql.DB) *PatientRepository { return &PatientRepository{db: db} }

const patientColumns = `
id, patient_code, name, age, gender,
tobacco, smoking, pan_masala,
symptom_duration, pain_level, difficulty_swallowing, weight_loss,
family_history, immune_compromised, persistent_sore_throat, voice_changes,
lumps_in_neck, frequent_mouth_sores, poor_dental_hygiene,
created_at, updated_at`

// Save insert/update Patient record
func (r *PatientRepository) Save(ctx context.Context, p *domain.Patient) error {
	const q = `
INSERT INTO patients
(id, patient_code, name, age, gender,
 tobacco, smoking, pan_masala,
 symptom_duration, pain_level, difficulty_swallowing, weight_loss,
 family_history, immune_compromised, persistent_sore_throat, voice_changes,
 lumps_in_neck, frequent_mouth_sores, poor_dental_hygiene,
 created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
ON CONFLICT (id) DO UPDATE SET
 patient_code = EXCLUDED.patient_code,
 name = EXCLUDED.name,
 age = EXCLUDED.age,
 gender = EXCLUDED.gender,
 tobacco = EXCLUDED.tobacco,
 smoking = EXCLUDED.smoking,
 pan_masala = EXCLUDED.pan_masala,
 symptom_duration = EXCLUDED.symptom_duration,
 pain_level = EXCLUDED.pain_level,
 difficulty_swallowing = EXCLUDED.difficulty_swallowing,
 weight_loss = EXCLUDED.weight_loss,
 family_history = EXCLUDED.family_history,
 immune_compromised = EXCLUDED.immune_compromised,
 persistent_sore_throat = EXCLUDED.persistent_sore_throat,
 voice_changes = EXCLUDED.voice_changes,
 lumps_in_neck = EXCLUDED.lumps_in_neck,
 frequent_mouth_sores = EXCLUDED.frequent_mouth_sores,
 poor_dental_hygiene = EXCLUDED.poor_dental_hygiene,
 updated_at = EXCLUDED.updated_at;`

	created := p.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	updated := p.UpdatedAt
	if updated.IsZero() {
		updated = created
	}

	_, err := r.db.ExecContext(ctx, q,
		p.ID, p.PatientCode, stringOrDash(p.Name), p.Age, p.Gender,
		p.Tobacco, p.Smoking, p.PanMasala,
		p.SymptomDuration, p.PainLevel, p.DifficultySwallowing, p.WeightLoss,
		p.FamilyHistory, p.ImmuneCompromised, p.PersistentSoreThroat, p.VoiceChanges,
		p.LumpsInNeck, p.FrequentMouthSores, p.PoorDentalHygiene,
		created, updated,
	)
	return err
}

// Get by ID. Returns (nil, nil) when the id resolves to no row.
func (r *PatientRepository) Get(ctx context.Context, id domain.PatientID) (*domain.Patient, error) {
	q := "SELECT " + patientColumns + " FROM patients WHERE id=$1 LIMIT 1;"
	p, err := scanPatient(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// List patients, newest first
func (r *PatientRepository) List(ctx context.Context, limit int) ([]*domain.Patient, error) {
	if limit <= 0 {
		limit = 100
	}
	q := "SELECT " + patientColumns + " FROM patients ORDER BY created_at DESC, id DESC LIMIT $1;"
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Delete removes one patient row
func (r *PatientRepository) Delete(ctx context.Context, id domain.PatientID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM patients WHERE id=$1;`, id)
	return err
}

func scanPatient(row rowScanner) (*domain.Patient, error) {
	var p domain.Patient
	if err := row.Scan(
		&p.ID, &p.PatientCode, &p.Name, &p.Age, &p.Gender,
		&p.Tobacco, &p.Smoking, &p.PanMasala,
		&p.SymptomDuration, &p.PainLevel, &p.DifficultySwallowing, &p.WeightLoss,
		&p.FamilyHistory, &p.ImmuneCompromised, &p.PersistentSoreThroat, &p.VoiceChanges,
		&p.LumpsInNeck, &p.FrequentMouthSores, &p.PoorDentalHygiene,
		&p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}
