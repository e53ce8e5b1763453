package prompt

import (
	"fmt"
	"strings"

	"github.com/oracare/oracare-api/internal/domain/patients"
)

// ScreeningSystemPrompt provides the assessment guidelines and the JSON schema
// the interpretation pipeline knows how to extract. The explicit
// "RISK LEVEL: X" statement requirement is load-bearing: the text parser keys
// on it before any keyword heuristic.
func ScreeningSystemPrompt() string {
	return `You are an expert oral pathologist analyzing an oral cavity image for signs of oral cancer.

CRITICAL INSTRUCTION: Your primary duty is to avoid false positives and unnecessary anxiety. Start fresh with each image, ignoring risk factors until visual assessment is complete.

STEP 1: BASELINE VISUAL ASSESSMENT
Document the presence or absence of ONLY these features:
A. Mucosal Features (REQUIRED)
   Normal = Pink, uniform, moist
   Abnormal = White/red patches, ulcers, masses

B. Surface Texture (REQUIRED)
   Normal = Smooth, regular
   Abnormal = Rough, irregular, raised

C. Symmetry & Patterns (REQUIRED)
   Normal = Regular patterns, bilateral symmetry
   Abnormal = Irregular patterns, asymmetry

D. Vascular Features (REQUIRED)
   Normal = Fine, regular vessels
   Abnormal = Dilated, irregular vessels

STEP 2: MANDATORY CLASSIFICATION RULES
1. If ALL features are NORMAL:
   - Risk MUST be classified as LOW
   - Confidence should be HIGH (>90%)
   - Provide only preventive recommendations

2. If ANY feature is ABNORMAL:
   - Document specific abnormal findings
   - Consider patient risk factors ONLY NOW
   - Justify any risk elevation with visible evidence

In your prose assessment, CLEARLY STATE ONE OF:
- "RISK LEVEL: HIGH" - if any high-risk indicator is present (non-healing ulcers or lesions, irregular borders, unexplained bleeding, hard lumps, tissue destruction, mixed red and white areas)
- "RISK LEVEL: MEDIUM" - if medium-risk indicators are present without high-risk features (persistent patches with regular borders, mild swelling, texture changes)
- "RISK LEVEL: LOW" - ONLY if tissue appears healthy with no concerning features

Then include a JSON object in this exact format:
{
  "visual_assessment": {
    "mucosal_features": "normal/abnormal",
    "surface_texture": "normal/abnormal",
    "symmetry": "normal/abnormal",
    "vascularity": "normal/abnormal",
    "objective_findings": ["list ONLY what you see"]
  },
  "classification": {
    "overall_appearance": "normal/abnormal",
    "risk_level": "low/medium/high",
    "confidence": 0.0-1.0,
    "visual_evidence": ["specific abnormalities if any"]
  },
  "recommendations": ["preventive if normal", "diagnostic if abnormal"]
}

WARNING: Unless you see clear abnormalities, maintain LOW risk assessment. Do not escalate risk based on habits alone.`
}

// ScreeningUserPrompt builds the user message, embedding the patient's
// histopathological context as plain text when provided.
func ScreeningUserPrompt(data *patients.HistopathologicalData) string {
	if data == nil {
		return "Analyze this oral cavity image for signs of oral cancer. No patient history is available; assess the image on visual evidence alone."
	}

	var b strings.Builder
	b.WriteString("Analyze this oral cavity image for signs of oral cancer. Consider the following patient information:\n")
	fmt.Fprintf(&b, "- Age: %s years\n", orUnknown(data.Age))
	b.WriteString("- Substance Use:\n")
	fmt.Fprintf(&b, "  * Tobacco: %s\n", orUnknown(data.Tobacco))
	fmt.Fprintf(&b, "  * Smoking: %s\n", orUnknown(data.Smoking))
	fmt.Fprintf(&b, "  * Pan Masala: %s\n", orUnknown(data.PanMasala))
	fmt.Fprintf(&b, "- Symptom Duration: %s months\n", orUnknown(data.SymptomDuration))
	fmt.Fprintf(&b, "- Pain Level: %s\n", orUnknown(data.PainLevel))
	b.WriteString("- Other Symptoms:\n")
	fmt.Fprintf(&b, "  * Difficulty Swallowing: %s\n", orUnknown(data.DifficultySwallowing))
	fmt.Fprintf(&b, "  * Weight Loss: %s\n", orUnknown(data.WeightLoss))
	fmt.Fprintf(&b, "  * Family History: %s\n", orUnknown(data.FamilyHistory))
	fmt.Fprintf(&b, "  * Immune Compromised: %s\n", orUnknown(data.ImmuneCompromised))
	fmt.Fprintf(&b, "  * Persistent Sore Throat: %s\n", orUnknown(data.PersistentSoreThroat))
	fmt.Fprintf(&b, "  * Voice Changes: %s\n", orUnknown(data.VoiceChanges))
	fmt.Fprintf(&b, "  * Lumps in Neck: %s\n", orUnknown(data.LumpsInNeck))
	fmt.Fprintf(&b, "  * Frequent Mouth Sores: %s\n", orUnknown(data.FrequentMouthSores))
	fmt.Fprintf(&b, "  * Poor Dental Hygiene: %s\n", orUnknown(data.PoorDentalHygiene))
	b.WriteString("\nBase the risk assessment on the image first; correlate with patient history only after visual findings are documented.")
	return b.String()
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}
