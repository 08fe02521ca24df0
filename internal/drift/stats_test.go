package drift

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKsStatistic_IdenticalSamplesIsZero(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5}
	require.InDelta(t, 0, ksStatistic(a, a), 1e-9)
}

func TestKsStatistic_DisjointSamplesIsOne(t *testing.T) {
	baseline := repeat(100, 20)
	current := repeat(500, 20)
	require.InDelta(t, 1.0, ksStatistic(current, baseline), 1e-9)
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestPSI_SeverityDistributionScenario(t *testing.T) {
	// baseline {critical:2,high:6,medium:6,low:4,info:2} (N=20) vs current
	// {critical:7,high:5,medium:5,low:3,info:0} (N=20). The zero current
	// "info" bucket dominates under the literal zero-guard formula (its
	// term alone is ~0.69), so the total PSI is materially larger than a
	// four-bucket-only estimate would suggest.
	p := []float64{2.0 / 20, 6.0 / 20, 6.0 / 20, 4.0 / 20, 2.0 / 20}
	q := []float64{7.0 / 20, 5.0 / 20, 5.0 / 20, 3.0 / 20, 0.0 / 20}
	value := psi(p, q, 1e-4)
	require.InDelta(t, 1.0366, value, 0.01)
}

func TestCosineSimilarity_IdenticalVectorsIsOne(t *testing.T) {
	v := []float64{1, 2, 3}
	require.InDelta(t, 1.0, cosineSimilarity(v, v), 1e-9)
}

func TestCosineSimilarity_OrthogonalVectorsIsZero(t *testing.T) {
	require.InDelta(t, 0.0, cosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
}

func TestJaccardDistance_IdenticalMultisetsIsZero(t *testing.T) {
	a := map[string]int{"x": 2, "y": 1}
	require.InDelta(t, 0, jaccardDistance(a, a), 1e-9)
}

func TestJaccardDistance_DisjointMultisetsIsOne(t *testing.T) {
	a := map[string]int{"x": 2}
	b := map[string]int{"y": 2}
	require.InDelta(t, 1.0, jaccardDistance(a, b), 1e-9)
}

func TestShannonEntropy_UniformStringIsZero(t *testing.T) {
	require.Equal(t, 0.0, shannonEntropy("aaaa"))
}

func TestShannonEntropy_MixedStringIsPositive(t *testing.T) {
	require.Greater(t, shannonEntropy("ab"), 0.0)
	require.False(t, math.IsNaN(shannonEntropy("ab")))
}
