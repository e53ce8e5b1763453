package analysis

import (
	"time"
)

// ID tipe untuk Analysis
type AnalysisID string

// RiskLevel enum
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Severity enum untuk findings
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
)

// Status enum
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Finding value object: satu observasi terstruktur dari hasil klasifikasi
type Finding struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

// ClassificationResult hasil interpretasi respons model
type ClassificationResult struct {
	Risk            RiskLevel `json:"risk"`
	Confidence      float64   `json:"confidence"`
	Analysis        string    `json:"analysis"`
	RawAnalysis     string    `json:"rawAnalysis,omitempty"`
	Findings        []Finding `json:"findings"`
	Recommendations []string  `json:"recommendations"`
	ScanID          string    `json:"scanId"`
}

// Aggregate Root: Analysis (satu baris di tabel analyses)
type Analysis struct {
	ID        AnalysisID           `json:"id"`
	PatientID string               `json:"patient_id,omitempty"`
	ImageURL  string               `json:"image_url,omitempty"`
	Result    ClassificationResult `json:"result"`
	Status    Status               `json:"status"`
	Error     string               `json:"error,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}

// MaxSeverity returns the highest severity present in the findings list,
// or SeverityLow when the list is empty.
func MaxSeverity(findings []Finding) Severity {
	max := SeverityLow
	for _, f := range findings {
		switch f.Severity {
		case SeverityHigh:
			return SeverityHigh
		case SeverityModerate:
			max = SeverityModerate
		}
	}
	return max
}
