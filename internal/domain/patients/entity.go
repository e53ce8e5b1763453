package patients

import "time"

// ID tipe untuk Patient
type PatientID string

// Aggregate Root: Patient (satu baris di tabel patients)
type Patient struct {
	ID          PatientID `json:"id"`
	PatientCode string    `json:"patient_code"`
	Name        string    `json:"name"`
	Age         int       `json:"age"`
	Gender      string    `json:"gender"`

	// Substance-use risk factors, recorded as Yes/No/Former
	Tobacco   string `json:"tobacco"`
	Smoking   string `json:"smoking"`
	PanMasala string `json:"pan_masala"`

	// Symptom history
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

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HistopathologicalData is the per-analysis patient context attached to a
// classification request. A subset of the Patient fields; all optional.
type HistopathologicalData struct {
	Age                  string `json:"age,omitempty"`
	Tobacco              string `json:"tobacco,omitempty"`
	Smoking              string `json:"smoking,omitempty"`
	PanMasala            string `json:"pan_masala,omitempty"`
	SymptomDuration      string `json:"symptom_duration,omitempty"`
	PainLevel            string `json:"painLevel,omitempty"`
	DifficultySwallowing string `json:"difficultySwallowing,omitempty"`
	WeightLoss           string `json:"weightLoss,omitempty"`
	FamilyHistory        string `json:"familyHistory,omitempty"`
	ImmuneCompromised    string `json:"immuneCompromised,omitempty"`
	PersistentSoreThroat string `json:"persistentSoreThroat,omitempty"`
	VoiceChanges         string `json:"voiceChanges,omitempty"`
	LumpsInNeck          string `json:"lumpsInNeck,omitempty"`
	FrequentMouthSores   string `json:"frequentMouthSores,omitempty"`
	PoorDentalHygiene    string `json:"poorDentalHygiene,omitempty"`
}
