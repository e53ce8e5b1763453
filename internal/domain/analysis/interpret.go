package analysis

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Indicator keyword sets used when the model response has no explicit
// "risk level:" statement. Any high hit wins over any medium hit.
var highRiskIndicators = []string{
	"ulcer", "lesion", "irregular border",
	"bleeding", "hard lump", "tissue destruction",
	"concerning", "suspicious", "immediate attention",
	"urgent", "severe",
}

var mediumRiskIndicators = []string{
	"persistent", "mild swelling",
	"texture change", "minor variation",
	"follow-up needed", "monitor",
}

var certaintyWords = []string{"clearly", "definitely", "certainly", "obvious"}
var hedgingWords = []string{"possibly", "might", "may", "unclear"}

const normalTissueAnalysis = "Normal oral cavity appearance with healthy mucosal features. No concerning lesions or abnormalities visible."

var urgentRecommendations = []string{
	"Immediate consultation with an oral pathologist",
	"Biopsy and further diagnostic imaging as needed",
	"Avoid all risk factors (e.g., tobacco, smoking)",
}

var monitoringRecommendations = []string{
	"Consult with a dental professional",
	"Monitor the affected area closely",
	"Maintain excellent oral hygiene practices",
}

var preventiveRecommendations = []string{
	"Maintain regular oral hygiene practices",
	"Continue routine dental check-ups",
	"Practice good oral health habits",
	"Monitor for any changes in appearance",
}

// rxEmbeddedJSON matches a JSON object embedded in prose. Greedy on purpose:
// the models wrap a single object in surrounding commentary.
var rxEmbeddedJSON = regexp.MustCompile(`\{[\s\S]*\}`)

// structuredPayload is the schema the screening prompt asks the model for.
// All fields are optional; responses are frequently partial.
type structuredPayload struct {
	VisualAssessment struct {
		MucosalFeatures   string   `json:"mucosal_features"`
		SurfaceTexture    string   `json:"surface_texture"`
		Symmetry          string   `json:"symmetry"`
		Vascularity       string   `json:"vascularity"`
		ObjectiveFindings []string `json:"objective_findings"`
	} `json:"visual_assessment"`
	Classification struct {
		OverallAppearance string  `json:"overall_appearance"`
		RiskLevel         string  `json:"risk_level"`
		Confidence        float64 `json:"confidence"`
	} `json:"classification"`
	Recommendations []string `json:"recommendations"`
}

// Interpret converts the raw model response, either free text or prose with an
// embedded JSON object, into a ClassificationResult. It is a pure function so
// prompt changes can be validated against it mechanically.
//
// Resolution order: structured findings (when present) always win, an explicit
// "risk level: X" statement beats keyword counting, and keyword counting beats
// the low default. Confidence is clamped to [0,1].
func Interpret(raw string) ClassificationResult {
	structured, hasStructured := extractStructured(raw)

	risk, explicit := riskFromStatement(raw)
	if !explicit {
		if hasStructured && parseRiskLevel(structured.Classification.RiskLevel) != "" {
			risk = parseRiskLevel(structured.Classification.RiskLevel)
		} else {
			risk = riskFromKeywords(raw)
		}
	}

	confidence := confidenceFromText(raw)
	if hasStructured && structured.Classification.Confidence > 0 {
		confidence = structured.Classification.Confidence
	}

	result := ClassificationResult{
		Risk:            risk,
		Confidence:      clamp01(confidence),
		Analysis:        raw,
		RawAnalysis:     raw,
		Findings:        findingsFromStructured(structured, risk),
		Recommendations: preventiveRecommendations,
	}
	if hasStructured {
		if joined := strings.Join(structured.VisualAssessment.ObjectiveFindings, "\n"); joined != "" {
			result.Analysis = joined
		}
		if len(structured.Recommendations) > 0 {
			result.Recommendations = structured.Recommendations
		}
	}

	return enforceSeverityConsistency(result)
}

// enforceSeverityConsistency is the post-processing invariant: the discrete
// risk must agree with the maximum severity present in the findings list.
// Free-text heuristics never outrank structured findings.
func enforceSeverityConsistency(r ClassificationResult) ClassificationResult {
	if len(r.Findings) == 0 {
		return r
	}
	switch MaxSeverity(r.Findings) {
	case SeverityHigh:
		r.Risk = RiskHigh
		r.Confidence = 0.99
		r.Recommendations = urgentRecommendations
	case SeverityModerate:
		r.Risk = RiskMedium
		r.Confidence = 0.85
		r.Recommendations = monitoringRecommendations
	default:
		r.Risk = RiskLow
		r.Confidence = 0.95
		r.Analysis = normalTissueAnalysis
		r.Recommendations = preventiveRecommendations
	}
	return r
}

// FallbackResult is the fail-open substitute used when the remote call fails
// entirely. Deliberately benign: low risk, fixed confidence, preventive advice.
func FallbackResult() ClassificationResult {
	return ClassificationResult{
		Risk:            RiskLow,
		Confidence:      0.5,
		Analysis:        "Automated analysis was unavailable for this image. The result below is a default assessment, not a model classification.",
		Recommendations: preventiveRecommendations,
	}
}

func extractStructured(raw string) (structuredPayload, bool) {
	m := rxEmbeddedJSON.FindString(raw)
	if m == "" {
		return structuredPayload{}, false
	}
	var p structuredPayload
	if err := json.Unmarshal([]byte(m), &p); err != nil {
		return structuredPayload{}, false
	}
	return p, true
}

// riskFromStatement scans for an explicit "risk level: X" statement,
// checked high first so a response mentioning several levels escalates.
func riskFromStatement(raw string) (RiskLevel, bool) {
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "risk level: high"):
		return RiskHigh, true
	case strings.Contains(lower, "risk level: medium"):
		return RiskMedium, true
	case strings.Contains(lower, "risk level: low"):
		return RiskLow, true
	}
	return RiskLow, false
}

func riskFromKeywords(raw string) RiskLevel {
	lower := strings.ToLower(raw)
	for _, kw := range highRiskIndicators {
		if strings.Contains(lower, kw) {
			return RiskHigh
		}
	}
	for _, kw := range mediumRiskIndicators {
		if strings.Contains(lower, kw) {
			return RiskMedium
		}
	}
	return RiskLow
}

// confidenceFromText starts from 0.7 and adjusts once for the certainty or
// hedging register of the response. Certainty wins when both are present.
func confidenceFromText(raw string) float64 {
	lower := strings.ToLower(raw)
	confidence := 0.7
	if containsAny(lower, certaintyWords) {
		confidence += 0.2
	} else if containsAny(lower, hedgingWords) {
		confidence -= 0.2
	}
	return confidence
}

func findingsFromStructured(p structuredPayload, risk RiskLevel) []Finding {
	findings := make([]Finding, 0, len(p.VisualAssessment.ObjectiveFindings))
	for _, desc := range p.VisualAssessment.ObjectiveFindings {
		findings = append(findings, Finding{
			Type:        "Observation",
			Description: desc,
			Severity:    severityFromRisk(risk),
		})
	}
	return findings
}

// severityFromRisk maps a risk level onto the finding severity domain;
// "medium" becomes "moderate".
func severityFromRisk(r RiskLevel) Severity {
	switch r {
	case RiskHigh:
		return SeverityHigh
	case RiskMedium:
		return SeverityModerate
	default:
		return SeverityLow
	}
}

func parseRiskLevel(s string) RiskLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return RiskHigh
	case "medium":
		return RiskMedium
	case "low":
		return RiskLow
	}
	return ""
}

func containsAny(lower string, words []string) bool {
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
