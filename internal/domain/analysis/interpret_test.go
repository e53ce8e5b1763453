package analysis

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInterpretDefaultsToLow(t *testing.T) {
	res := Interpret("Healthy pink mucosa with no visible abnormalities.")
	require.Equal(t, RiskLow, res.Risk)
	require.InDelta(t, 0.7, res.Confidence, 0.001)
	require.Empty(t, res.Findings)
	require.Equal(t, preventiveRecommendations, res.Recommendations)
}

func TestInterpretKeywordEscalation(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want RiskLevel
	}{
		{"high keyword", "An ulcer is visible on the lateral tongue.", RiskHigh},
		{"high beats medium", "A persistent ulcer near the molar region.", RiskHigh},
		{"medium keyword", "A minor variation in color on the palate.", RiskMedium},
		{"no keyword", "Smooth even coloration across the palate.", RiskLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Interpret(tt.raw).Risk)
		})
	}
}

func TestInterpretExplicitStatementWins(t *testing.T) {
	// explicit statement outranks any keyword hits
	res := Interpret("Severe ulcer with bleeding noted earlier resolved. RISK LEVEL: LOW")
	require.Equal(t, RiskLow, res.Risk)

	// when several levels are named, the highest wins
	res = Interpret("Not risk level: low here. Final call, risk level: high.")
	require.Equal(t, RiskHigh, res.Risk)
}

func TestInterpretConfidenceRegister(t *testing.T) {
	res := Interpret("The mucosa is clearly healthy.")
	require.InDelta(t, 0.9, res.Confidence, 0.001)

	res = Interpret("There might be a subtle color shift.")
	require.InDelta(t, 0.5, res.Confidence, 0.001)

	// certainty wins when both registers appear
	res = Interpret("This is clearly benign, though the margin might vary.")
	require.InDelta(t, 0.9, res.Confidence, 0.001)
}

func TestInterpretStructuredHighFindings(t *testing.T) {
	raw := `Assessment follows.
{"visual_assessment":{"objective_findings":["white patch on buccal mucosa","raised border around patch"]},"classification":{"risk_level":"high","confidence":0.92},"recommendations":["see a specialist"]}
End of report.`

	res := Interpret(raw)
	require.Equal(t, RiskHigh, res.Risk)
	require.InDelta(t, 0.99, res.Confidence, 0.001)
	require.Len(t, res.Findings, 2)
	require.Equal(t, SeverityHigh, res.Findings[0].Severity)
	require.Equal(t, urgentRecommendations, res.Recommendations)
	require.Equal(t, "white patch on buccal mucosa\nraised border around patch", res.Analysis)
	require.Equal(t, raw, res.RawAnalysis)
}

func TestInterpretStructuredModerateFindings(t *testing.T) {
	raw := `{"visual_assessment":{"objective_findings":["slight asymmetry of the soft palate"]},"classification":{"risk_level":"medium","confidence":0.6}}`

	res := Interpret(raw)
	require.Equal(t, RiskMedium, res.Risk)
	require.InDelta(t, 0.85, res.Confidence, 0.001)
	require.Equal(t, SeverityModerate, res.Findings[0].Severity)
	require.Equal(t, monitoringRecommendations, res.Recommendations)
}

func TestInterpretStructuredBenignFindings(t *testing.T) {
	raw := `{"visual_assessment":{"objective_findings":["uniform pink mucosa"]},"classification":{"risk_level":"low","confidence":0.8}}`

	res := Interpret(raw)
	require.Equal(t, RiskLow, res.Risk)
	require.InDelta(t, 0.95, res.Confidence, 0.001)
	require.Equal(t, normalTissueAnalysis, res.Analysis)
	require.Equal(t, preventiveRecommendations, res.Recommendations)
}

func TestInterpretStructuredWithoutFindings(t *testing.T) {
	raw := `{"classification":{"risk_level":"medium","confidence":0.6}}`

	res := Interpret(raw)
	require.Equal(t, RiskMedium, res.Risk)
	require.InDelta(t, 0.6, res.Confidence, 0.001)
	require.Empty(t, res.Findings)
	require.Equal(t, raw, res.Analysis)
}

func TestInterpretConfidenceClamped(t *testing.T) {
	res := Interpret(`{"classification":{"confidence":1.8}}`)
	require.Equal(t, 1.0, res.Confidence)
}

func TestInterpretMalformedJSONFallsBackToText(t *testing.T) {
	res := Interpret(`A suspicious area is present. {"classification": broken}`)
	require.Equal(t, RiskHigh, res.Risk)
	require.Empty(t, res.Findings)
}

func TestFallbackResult(t *testing.T) {
	res := FallbackResult()
	require.Equal(t, RiskLow, res.Risk)
	require.Equal(t, 0.5, res.Confidence)
	require.Equal(t, preventiveRecommendations, res.Recommendations)
}

func TestMaxSeverity(t *testing.T) {
	require.Equal(t, SeverityLow, MaxSeverity(nil))
	require.Equal(t, SeverityModerate, MaxSeverity([]Finding{
		{Severity: SeverityLow}, {Severity: SeverityModerate},
	}))
	require.Equal(t, SeverityHigh, MaxSeverity([]Finding{
		{Severity: SeverityModerate}, {Severity: SeverityHigh}, {Severity: SeverityLow},
	}))
}
