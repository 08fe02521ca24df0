package model

import "github.com/roshinpv1/promptshield/internal/coretypes"

// Embedding is a fixed-dimension vector computed for one Finding's
// evidence_response, keyed uniquely by FindingID.
type Embedding struct {
	ID        coretypes.ID `json:"id"`
	FindingID coretypes.ID `json:"finding_id"`
	ModelName string       `json:"model_name"`
	Vector    []float64    `json:"vector"`
}
