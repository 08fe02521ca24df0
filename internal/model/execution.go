package model

import (
	"time"

	"github.com/roshinpv1/promptshield/internal/coretypes"
)

// ExecutionStatus is the lifecycle state of an Execution.
type ExecutionStatus string

const (
	StatusPending   ExecutionStatus = "pending"
	StatusRunning   ExecutionStatus = "running"
	StatusCompleted ExecutionStatus = "completed"
	StatusFailed    ExecutionStatus = "failed"
	StatusCancelled ExecutionStatus = "cancelled"
)

// CanTransitionTo enforces the monotonic state machine from spec.md §3:
// Pending -> Running -> {Completed, Failed}, plus the single exception
// Running -> Cancelled. All other transitions (including any transition out
// of a terminal state) are rejected.
func (s ExecutionStatus) CanTransitionTo(next ExecutionStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusRunning
	case StatusRunning:
		return next == StatusCompleted || next == StatusFailed || next == StatusCancelled
	default:
		return false
	}
}

// IsTerminal reports whether status is one no further Findings or
// Embeddings may be persisted against.
func (s ExecutionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Execution is one run of a Pipeline against an LLMConfig.
type Execution struct {
	ID           coretypes.ID    `json:"id"`
	PipelineID   coretypes.ID    `json:"pipeline_id"`
	LLMConfigID  coretypes.ID    `json:"llm_config_id"`
	Status       ExecutionStatus `json:"status"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}
