// Package store is the persistence contract from spec.md §6: atomic row
// inserts and compare-and-set status updates over the entities in §3. The
// core depends only on this contract, not on SQLite specifically; Store is
// implemented here on top of internal/database, matching the teacher's
// DAO-per-entity layering (internal/database/*_dao.go) but collapsed into
// one file per entity group since PromptShield's core has far fewer tables.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roshinpv1/promptshield/internal/coretypes"
	"github.com/roshinpv1/promptshield/internal/database"
	"github.com/roshinpv1/promptshield/internal/model"
)

// ErrNotFound is returned when a lookup by id finds no row.
var ErrNotFound = errors.New("store: not found")

// ErrCASConflict is returned when a status transition's WHERE clause
// matches zero rows, meaning the execution was not in the expected state.
var ErrCASConflict = errors.New("store: compare-and-set conflict")

// Store is the persistence surface the core reads and writes against.
type Store struct {
	db *database.DB
}

// New wraps an already-open, already-migrated database connection.
func New(db *database.DB) *Store {
	return &Store{db: db}
}

// --- LLMConfig -------------------------------------------------------------

// PutLLMConfig upserts an LLMConfig row.
func (s *Store) PutLLMConfig(ctx context.Context, c model.LLMConfig) error {
	headers, err := json.Marshal(c.Headers)
	if err != nil {
		return fmt.Errorf("marshal headers: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO llm_configs (id, name, endpoint_url, method, headers, payload_template, timeout_seconds, max_retries, environment)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, endpoint_url=excluded.endpoint_url, method=excluded.method,
			headers=excluded.headers, payload_template=excluded.payload_template,
			timeout_seconds=excluded.timeout_seconds, max_retries=excluded.max_retries,
			environment=excluded.environment`,
		c.ID, c.Name, c.EndpointURL, c.EffectiveMethod(), string(headers), c.PayloadTemplate,
		c.EffectiveTimeoutSeconds(), c.EffectiveMaxRetries(), c.Environment)
	return err
}

// GetLLMConfig loads an LLMConfig by id.
func (s *Store) GetLLMConfig(ctx context.Context, id coretypes.ID) (model.LLMConfig, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, endpoint_url, method, headers, payload_template, timeout_seconds, max_retries, environment
		FROM llm_configs WHERE id = ?`, id)

	var c model.LLMConfig
	var headers string
	if err := row.Scan(&c.ID, &c.Name, &c.EndpointURL, &c.Method, &headers, &c.PayloadTemplate,
		&c.TimeoutSeconds, &c.MaxRetries, &c.Environment); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.LLMConfig{}, ErrNotFound
		}
		return model.LLMConfig{}, err
	}
	if err := json.Unmarshal([]byte(headers), &c.Headers); err != nil {
		return model.LLMConfig{}, fmt.Errorf("unmarshal headers: %w", err)
	}
	return c, nil
}

// --- Pipeline ---------------------------------------------------------------

// PutPipeline upserts a Pipeline row.
func (s *Store) PutPipeline(ctx context.Context, p model.Pipeline) error {
	libs, err := json.Marshal(p.Libraries)
	if err != nil {
		return err
	}
	cats, err := json.Marshal(p.TestCategories)
	if err != nil {
		return err
	}
	cutoffs, err := json.Marshal(p.SeverityCutoffs)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pipelines (id, name, libraries, test_categories, severity_cutoffs, llm_config_id)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, libraries=excluded.libraries, test_categories=excluded.test_categories,
			severity_cutoffs=excluded.severity_cutoffs, llm_config_id=excluded.llm_config_id`,
		p.ID, p.Name, string(libs), string(cats), string(cutoffs), p.LLMConfigID)
	return err
}

// GetPipeline loads a Pipeline by id.
func (s *Store) GetPipeline(ctx context.Context, id coretypes.ID) (model.Pipeline, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, libraries, test_categories, severity_cutoffs, llm_config_id
		FROM pipelines WHERE id = ?`, id)

	var p model.Pipeline
	var libs, cats, cutoffs string
	if err := row.Scan(&p.ID, &p.Name, &libs, &cats, &cutoffs, &p.LLMConfigID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Pipeline{}, ErrNotFound
		}
		return model.Pipeline{}, err
	}
	if err := json.Unmarshal([]byte(libs), &p.Libraries); err != nil {
		return model.Pipeline{}, err
	}
	if err := json.Unmarshal([]byte(cats), &p.TestCategories); err != nil {
		return model.Pipeline{}, err
	}
	if err := json.Unmarshal([]byte(cutoffs), &p.SeverityCutoffs); err != nil {
		return model.Pipeline{}, err
	}
	return p, nil
}

// --- Execution ---------------------------------------------------------------

// CreateExecution inserts a new Pending execution row.
func (s *Store) CreateExecution(ctx context.Context, e model.Execution) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO executions (id, pipeline_id, llm_config_id, status, started_at, completed_at, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.PipelineID, e.LLMConfigID, string(e.Status), e.StartedAt, e.CompletedAt, e.ErrorMessage)
	return err
}

// GetExecution loads an Execution by id.
func (s *Store) GetExecution(ctx context.Context, id coretypes.ID) (model.Execution, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, pipeline_id, llm_config_id, status, started_at, completed_at, error_message
		FROM executions WHERE id = ?`, id)
	return scanExecution(row)
}

func scanExecution(row *sql.Row) (model.Execution, error) {
	var e model.Execution
	var status string
	if err := row.Scan(&e.ID, &e.PipelineID, &e.LLMConfigID, &status, &e.StartedAt, &e.CompletedAt, &e.ErrorMessage); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Execution{}, ErrNotFound
		}
		return model.Execution{}, err
	}
	e.Status = model.ExecutionStatus(status)
	return e, nil
}

// TransitionExecution performs a compare-and-set status update: the row is
// only updated when its current status equals from. Returns ErrCASConflict
// if no row matched, enforcing the monotonic state machine from spec.md §3
// without a transaction round-trip for the read.
func (s *Store) TransitionExecution(ctx context.Context, id coretypes.ID, from, to model.ExecutionStatus, stamps ExecutionStamps) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("illegal transition %s -> %s", from, to)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE executions
		SET status = ?, started_at = COALESCE(?, started_at), completed_at = COALESCE(?, completed_at),
			error_message = COALESCE(?, error_message)
		WHERE id = ? AND status = ?`,
		string(to), stamps.StartedAt, stamps.CompletedAt, stamps.ErrorMessage, id, string(from))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCASConflict
	}
	return nil
}

// ExecutionStamps carries the optional timestamp/error fields a transition
// writes alongside the status column. Nil fields leave the column untouched.
type ExecutionStamps struct {
	StartedAt    *time.Time
	CompletedAt  *time.Time
	ErrorMessage *string
}

// PreviousCompletedExecution finds the most recent Completed execution for
// the same pipeline+llm_config with id strictly less than before, used by
// BaselineRefPrevious (spec.md §4.7). IDs are UUIDs, so "strictly less than"
// is approximated by requiring the candidate to have been created earlier;
// the store tracks insertion order via rowid since UUIDs do not sort
// chronologically.
func (s *Store) PreviousCompletedExecution(ctx context.Context, pipelineID, llmConfigID, before coretypes.ID) (model.Execution, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, pipeline_id, llm_config_id, status, started_at, completed_at, error_message
		FROM executions
		WHERE pipeline_id = ? AND llm_config_id = ? AND status = 'completed' AND rowid < (
			SELECT rowid FROM executions WHERE id = ?
		)
		ORDER BY rowid DESC
		LIMIT 1`, pipelineID, llmConfigID, before)
	return scanExecution(row)
}

// --- Finding ------------------------------------------------------------------

// InsertFinding persists one normalized Finding. It is rejected by the
// caller (execution engine), not by the store, when the execution is
// already terminal — the store only knows about single-row inserts.
func (s *Store) InsertFinding(ctx context.Context, f model.Finding) error {
	extra, err := json.Marshal(f.Extra)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO findings (id, execution_id, library, test_category, severity, risk_type, evidence_prompt, evidence_response, confidence, extra)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.ExecutionID, f.Library, f.TestCategory, string(f.Severity), f.RiskType,
		f.EvidencePrompt, f.EvidenceResponse, f.Confidence, string(extra))
	return err
}

// ListFindings returns every Finding for an execution, in storage order
// (spec.md §4.4: no ordering is guaranteed among Findings).
func (s *Store) ListFindings(ctx context.Context, executionID coretypes.ID) ([]model.Finding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, execution_id, library, test_category, severity, risk_type, evidence_prompt, evidence_response, confidence, extra
		FROM findings WHERE execution_id = ?`, executionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Finding
	for rows.Next() {
		var f model.Finding
		var severity, extra string
		if err := rows.Scan(&f.ID, &f.ExecutionID, &f.Library, &f.TestCategory, &severity, &f.RiskType,
			&f.EvidencePrompt, &f.EvidenceResponse, &f.Confidence, &extra); err != nil {
			return nil, err
		}
		f.Severity = model.Severity(severity)
		if err := json.Unmarshal([]byte(extra), &f.Extra); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// CountFindingsByExecution returns len(ListFindings(executionID)) without
// materializing the rows, used by TestableProperty #2 assertions and by
// the run and validate commands.
func (s *Store) CountFindingsByExecution(ctx context.Context, executionID coretypes.ID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM findings WHERE execution_id = ?`, executionID).Scan(&n)
	return n, err
}

// --- Embedding ------------------------------------------------------------

// InsertEmbedding persists one Embedding, keyed uniquely by finding id.
func (s *Store) InsertEmbedding(ctx context.Context, e model.Embedding) error {
	vec, err := json.Marshal(e.Vector)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO embeddings (id, finding_id, model_name, vector) VALUES (?, ?, ?, ?)
		ON CONFLICT(finding_id) DO UPDATE SET model_name=excluded.model_name, vector=excluded.vector`,
		e.ID, e.FindingID, e.ModelName, string(vec))
	return err
}

// ListEmbeddingsForExecution returns every Embedding whose Finding belongs
// to executionID.
func (s *Store) ListEmbeddingsForExecution(ctx context.Context, executionID coretypes.ID) ([]model.Embedding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.finding_id, e.model_name, e.vector
		FROM embeddings e JOIN findings f ON f.id = e.finding_id
		WHERE f.execution_id = ?`, executionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Embedding
	for rows.Next() {
		var e model.Embedding
		var vec string
		if err := rows.Scan(&e.ID, &e.FindingID, &e.ModelName, &vec); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(vec), &e.Vector); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- Baseline ---------------------------------------------------------------

// CreateBaseline inserts a Baseline row. The caller is responsible for
// verifying ExecutionID references a Completed execution (spec.md §4.7).
func (s *Store) CreateBaseline(ctx context.Context, b model.Baseline) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO baselines (id, execution_id, name, tag, created_at) VALUES (?, ?, ?, ?, ?)`,
		b.ID, b.ExecutionID, b.Name, b.Tag, b.CreatedAt)
	return err
}

// GetBaselineByTag resolves a Baseline by its unique tag.
func (s *Store) GetBaselineByTag(ctx context.Context, tag string) (model.Baseline, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, execution_id, name, tag, created_at FROM baselines WHERE tag = ?`, tag)
	return scanBaseline(row)
}

// GetBaseline loads a Baseline by id.
func (s *Store) GetBaseline(ctx context.Context, id coretypes.ID) (model.Baseline, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, execution_id, name, tag, created_at FROM baselines WHERE id = ?`, id)
	return scanBaseline(row)
}

func scanBaseline(row *sql.Row) (model.Baseline, error) {
	var b model.Baseline
	if err := row.Scan(&b.ID, &b.ExecutionID, &b.Name, &b.Tag, &b.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Baseline{}, ErrNotFound
		}
		return model.Baseline{}, err
	}
	return b, nil
}

// BaselineReferencesExecution reports whether any Baseline still points at
// executionID, used to reject execution deletion (spec.md §3 Ownership).
func (s *Store) BaselineReferencesExecution(ctx context.Context, executionID coretypes.ID) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM baselines WHERE execution_id = ?`, executionID).Scan(&n)
	return n > 0, err
}

// --- DriftFinding -----------------------------------------------------------

// ReplaceDriftFindings deletes any prior DriftFindings for (currentID,
// baselineID) and inserts the new set in one transaction, implementing the
// idempotence contract from spec.md §6 (compareDrift re-runs replace prior
// results for that pair).
func (s *Store) ReplaceDriftFindings(ctx context.Context, currentID, baselineID coretypes.ID, findings []model.DriftFinding) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM drift_findings WHERE current_execution_id = ? AND baseline_execution_id = ?`,
			currentID, baselineID); err != nil {
			return err
		}
		for _, df := range findings {
			details, err := json.Marshal(df.Details)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO drift_findings (id, current_execution_id, baseline_execution_id, channel, metric, value, threshold, severity, confidence, details)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				df.ID, df.CurrentExecutionID, df.BaselineExecutionID, string(df.Channel), df.Metric,
				df.Value, df.Threshold, string(df.Severity), df.Confidence, string(details)); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListDriftFindings returns the DriftFindings for one (current, baseline) pair.
func (s *Store) ListDriftFindings(ctx context.Context, currentID, baselineID coretypes.ID) ([]model.DriftFinding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, current_execution_id, baseline_execution_id, channel, metric, value, threshold, severity, confidence, details
		FROM drift_findings WHERE current_execution_id = ? AND baseline_execution_id = ?`, currentID, baselineID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.DriftFinding
	for rows.Next() {
		var df model.DriftFinding
		var channel, severity, details string
		if err := rows.Scan(&df.ID, &df.CurrentExecutionID, &df.BaselineExecutionID, &channel, &df.Metric,
			&df.Value, &df.Threshold, &severity, &df.Confidence, &details); err != nil {
			return nil, err
		}
		df.Channel = model.DriftChannel(channel)
		df.Severity = model.DriftSeverity(severity)
		if err := json.Unmarshal([]byte(details), &df.Details); err != nil {
			return nil, err
		}
		out = append(out, df)
	}
	return out, rows.Err()
}
