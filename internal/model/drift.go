package model

import "github.com/roshinpv1/promptshield/internal/coretypes"

// DriftChannel is one of the five independent drift-detection channels.
type DriftChannel string

const (
	ChannelOutput       DriftChannel = "output"
	ChannelSafety        DriftChannel = "safety"
	ChannelDistribution  DriftChannel = "distribution"
	ChannelEmbedding     DriftChannel = "embedding"
	ChannelAgentTool     DriftChannel = "agent_tool"
)

// DriftSeverity is the severity scale for drift findings. It deliberately
// has no "info" level (spec.md §3).
type DriftSeverity string

const (
	DriftCritical DriftSeverity = "critical"
	DriftHigh     DriftSeverity = "high"
	DriftMedium   DriftSeverity = "medium"
	DriftLow      DriftSeverity = "low"
)

// DriftFinding is one statistical observation on one channel, comparing a
// current execution against a baseline execution.
type DriftFinding struct {
	ID                 coretypes.ID   `json:"id"`
	CurrentExecutionID coretypes.ID   `json:"current_execution_id"`
	BaselineExecutionID coretypes.ID  `json:"baseline_execution_id"`
	Channel            DriftChannel   `json:"channel"`
	Metric             string         `json:"metric"`
	Value              float64        `json:"value"`
	Threshold          float64        `json:"threshold"`
	Severity           DriftSeverity  `json:"severity"`
	Confidence         *float64       `json:"confidence,omitempty"`
	Details            map[string]any `json:"details,omitempty"`
}

// ChannelErrorMetric is the metric name used for a DriftFinding synthesized
// from a failed channel (spec.md §7).
const ChannelErrorMetric = "channel_error"
