package drift

import (
	"github.com/roshinpv1/promptshield/internal/coretypes"
	"github.com/roshinpv1/promptshield/internal/model"
)

// embeddingFloor raises the emission cutoff for embedding drift to its own
// threshold, per spec.md §4.8.4 ("the same brackets as output drift but
// with a floor at threshold 0.30"). The medium and low buckets (which sit
// below 0.30) never fire for this channel as a result.
const embeddingFloor = 0.30

// embeddingChannel compares response-embedding centroids between two
// executions (spec.md §4.8.4). It requires at least one embedding on each
// side sharing the same model name; otherwise it emits a single
// embeddings_unavailable low-severity finding and returns.
func embeddingChannel(currentID, baselineID coretypes.ID, current, baseline []model.Embedding, threshold float64) []model.DriftFinding {
	if len(current) == 0 || len(baseline) == 0 || !sameModelName(current, baseline) {
		return []model.DriftFinding{{
			ID:                  coretypes.NewID(),
			CurrentExecutionID:  currentID,
			BaselineExecutionID: baselineID,
			Channel:             model.ChannelEmbedding,
			Metric:              "embeddings_unavailable",
			Value:               1,
			Threshold:           threshold,
			Severity:            model.DriftLow,
		}}
	}

	currentVectors := vectorsOf(current)
	baselineVectors := vectorsOf(baseline)
	currentCentroid := centroid(currentVectors)
	baselineCentroid := centroid(baselineVectors)

	var findings []model.DriftFinding
	cosDistance := 1 - cosineSimilarity(currentCentroid, baselineCentroid)
	if f, ok := bracketFinding(currentID, baselineID, model.ChannelEmbedding, "centroid_cosine_distance", cosDistance, threshold, embeddingFloor); ok {
		findings = append(findings, f)
	}

	// pairwise_similarity_variance_delta is an auxiliary metric: emitted
	// whenever the channel runs successfully, not gated by the severity
	// floor primary metrics use (SPEC_FULL.md §11.3).
	varianceDelta := absFloat(pairwiseSimilarityVariance(currentVectors) - pairwiseSimilarityVariance(baselineVectors))
	findings = append(findings, alwaysEmitFinding(currentID, baselineID, model.ChannelEmbedding, "pairwise_similarity_variance_delta", varianceDelta, threshold, embeddingFloor))

	return findings
}

func sameModelName(current, baseline []model.Embedding) bool {
	return current[0].ModelName == baseline[0].ModelName
}

func vectorsOf(embeddings []model.Embedding) [][]float64 {
	vectors := make([][]float64, len(embeddings))
	for i, e := range embeddings {
		vectors[i] = e.Vector
	}
	return vectors
}
