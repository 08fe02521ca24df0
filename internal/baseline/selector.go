// Package baseline implements the Baseline Selector (spec.md §4.7): it
// resolves a BaselineRef against the store into a concrete baseline
// execution id, the reference DriftEngine.Compare reads Findings and
// Embeddings from.
package baseline

import (
	"context"
	"errors"

	"github.com/roshinpv1/promptshield/internal/coretypes"
	"github.com/roshinpv1/promptshield/internal/model"
	"github.com/roshinpv1/promptshield/internal/store"
)

// Selector resolves BaselineRefs against a Store.
type Selector struct {
	store *store.Store
}

// New builds a Selector.
func New(st *store.Store) *Selector {
	return &Selector{store: st}
}

// Resolve implements spec.md §4.7's three-branch lookup. allowSelfReference
// lets test code compare an execution against itself; production callers
// should always pass false.
func (s *Selector) Resolve(ctx context.Context, currentExecutionID coretypes.ID, ref model.BaselineRef, allowSelfReference bool) (coretypes.ID, error) {
	baselineID, err := s.resolve(ctx, currentExecutionID, ref)
	if err != nil {
		return "", err
	}
	if !allowSelfReference && baselineID == currentExecutionID {
		return "", coretypes.NewError(coretypes.BASELINE_SELF_REFERENCE, "baseline cannot be the execution being compared")
	}
	return baselineID, nil
}

func (s *Selector) resolve(ctx context.Context, currentExecutionID coretypes.ID, ref model.BaselineRef) (coretypes.ID, error) {
	switch ref.Kind {
	case model.BaselineRefExplicitID:
		return s.resolveExplicitID(ctx, ref.ExplicitID)
	case model.BaselineRefTag:
		return s.resolveTag(ctx, ref.Tag)
	case model.BaselineRefPrevious:
		return s.resolvePrevious(ctx, currentExecutionID)
	default:
		return "", coretypes.NewError(coretypes.BASELINE_NOT_FOUND, "unrecognized baseline reference kind")
	}
}

func (s *Selector) resolveExplicitID(ctx context.Context, id coretypes.ID) (coretypes.ID, error) {
	exec, err := s.store.GetExecution(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", coretypes.WrapError(coretypes.BASELINE_NOT_FOUND, "baseline execution not found", err)
		}
		return "", err
	}
	if exec.Status != model.StatusCompleted {
		return "", coretypes.NewError(coretypes.BASELINE_NOT_USABLE, "baseline execution is not completed")
	}
	return exec.ID, nil
}

func (s *Selector) resolveTag(ctx context.Context, tag string) (coretypes.ID, error) {
	b, err := s.store.GetBaselineByTag(ctx, tag)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", coretypes.WrapError(coretypes.BASELINE_NOT_FOUND, "baseline tag not found", err)
		}
		return "", err
	}
	return s.resolveExplicitID(ctx, b.ExecutionID)
}

func (s *Selector) resolvePrevious(ctx context.Context, currentExecutionID coretypes.ID) (coretypes.ID, error) {
	current, err := s.store.GetExecution(ctx, currentExecutionID)
	if err != nil {
		return "", err
	}
	prev, err := s.store.PreviousCompletedExecution(ctx, current.PipelineID, current.LLMConfigID, currentExecutionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", coretypes.WrapError(coretypes.BASELINE_NOT_FOUND, "no previous completed execution for this pipeline and llm config", err)
		}
		return "", err
	}
	return prev.ID, nil
}
