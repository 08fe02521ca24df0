package model

import (
	"time"

	"github.com/roshinpv1/promptshield/internal/coretypes"
)

// Baseline designates a previously Completed Execution as the comparison
// reference for drift.
type Baseline struct {
	ID          coretypes.ID `json:"id"`
	ExecutionID coretypes.ID `json:"execution_id"`
	Name        string       `json:"name"`
	Tag         *string      `json:"tag,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// BaselineRefKind discriminates the three ways a baseline can be resolved.
type BaselineRefKind string

const (
	BaselineRefExplicitID BaselineRefKind = "explicit_id"
	BaselineRefTag        BaselineRefKind = "tag"
	BaselineRefPrevious   BaselineRefKind = "previous"
)

// BaselineRef is a tagged variant selecting how to resolve a baseline
// execution for a drift comparison (spec.md §4.7).
type BaselineRef struct {
	Kind       BaselineRefKind
	ExplicitID coretypes.ID
	Tag        string
}

// ExplicitID builds a BaselineRef that resolves to exactly this execution.
func ExplicitID(id coretypes.ID) BaselineRef {
	return BaselineRef{Kind: BaselineRefExplicitID, ExplicitID: id}
}

// ByTag builds a BaselineRef that resolves via a named Baseline's tag.
func ByTag(tag string) BaselineRef {
	return BaselineRef{Kind: BaselineRefTag, Tag: tag}
}

// Previous builds a BaselineRef that resolves to the most recent Completed
// execution sharing the current execution's pipeline and LLM config.
func Previous() BaselineRef {
	return BaselineRef{Kind: BaselineRefPrevious}
}
