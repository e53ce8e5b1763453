package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oracare/oracare-api/internal/domain/analysis"
)

func result(risk analysis.RiskLevel) analysis.ClassificationResult {
	return analysis.ClassificationResult{Risk: risk, Confidence: 0.9}
}

func TestPutGet(t *testing.T) {
	c := New(4, time.Hour)
	c.Put("fp-1", result(analysis.RiskHigh))

	got, ok := c.Get("fp-1")
	require.True(t, ok)
	require.Equal(t, analysis.RiskHigh, got.Risk)

	_, ok = c.Get("fp-missing")
	require.False(t, ok)
}

func TestFIFOEvictionIgnoresReads(t *testing.T) {
	c := New(2, time.Hour)
	c.Put("fp-a", result(analysis.RiskLow))
	c.Put("fp-b", result(analysis.RiskLow))

	// a read must not protect the oldest entry from eviction
	_, ok := c.Get("fp-a")
	require.True(t, ok)

	c.Put("fp-c", result(analysis.RiskLow))
	require.Equal(t, 2, c.Len())

	_, ok = c.Get("fp-a")
	require.False(t, ok)
	_, ok = c.Get("fp-b")
	require.True(t, ok)
	_, ok = c.Get("fp-c")
	require.True(t, ok)
}

func TestReinsertMovesToBack(t *testing.T) {
	c := New(2, time.Hour)
	c.Put("fp-a", result(analysis.RiskLow))
	c.Put("fp-b", result(analysis.RiskLow))
	c.Put("fp-a", result(analysis.RiskHigh))
	c.Put("fp-c", result(analysis.RiskLow))

	_, ok := c.Get("fp-b")
	require.False(t, ok)

	got, ok := c.Get("fp-a")
	require.True(t, ok)
	require.Equal(t, analysis.RiskHigh, got.Risk)
}

func TestTTLExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := New(4, 24*time.Hour).WithClock(func() time.Time { return now })

	c.Put("fp-a", result(analysis.RiskMedium))

	now = now.Add(23 * time.Hour)
	_, ok := c.Get("fp-a")
	require.True(t, ok)

	now = now.Add(time.Hour)
	_, ok = c.Get("fp-a")
	require.False(t, ok)
	require.Equal(t, 0, c.Len(), "expired entry must be dropped on access")
}

func TestStats(t *testing.T) {
	c := New(4, time.Hour)
	c.Put("fp-a", result(analysis.RiskLow))

	c.Get("fp-a")
	c.Get("fp-a")
	c.Get("fp-missing")

	hits, misses := c.Stats()
	require.Equal(t, uint64(2), hits)
	require.Equal(t, uint64(1), misses)
}
