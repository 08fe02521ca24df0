package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/spf13/cobra"

	"github.com/roshinpv1/promptshield/internal/baseline"
	"github.com/roshinpv1/promptshield/internal/coretypes"
	"github.com/roshinpv1/promptshield/internal/database"
	"github.com/roshinpv1/promptshield/internal/drift"
	"github.com/roshinpv1/promptshield/internal/execution"
	"github.com/roshinpv1/promptshield/internal/model"
	"github.com/roshinpv1/promptshield/internal/probe"
	"github.com/roshinpv1/promptshield/internal/store"
	"github.com/roshinpv1/promptshield/internal/summary"
	"github.com/roshinpv1/promptshield/internal/transport"
)

// validateCmd is the CLI smoke test the original shipped as a standalone
// validate_v1.1.py operational script: it pings a target (here, a local
// echo server rather than a real deployment), checks every adapter is
// registered, and exercises the core end to end, reporting pass/fail per
// numbered check (SPEC_FULL.md §11.4).
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run a self-contained smoke test of the core against a local echo target",
	RunE:  runValidate,
}

type validateCheck struct {
	name string
	err  error
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	var checks []validateCheck

	record := func(name string, err error) {
		checks = append(checks, validateCheck{name: name, err: err})
	}

	dbPath, err := os.CreateTemp("", "promptshield-validate-*.db")
	if err != nil {
		return fatalf(cmd, "create temp database: %v", err)
	}
	defer os.Remove(dbPath.Name())
	dbPath.Close()

	db, err := database.Open(dbPath.Name())
	record("open database", err)
	if err != nil {
		return reportValidation(cmd, checks)
	}
	defer db.Close()

	err = store.Migrate(ctx, db)
	record("apply migrations", err)
	if err != nil {
		return reportValidation(cmd, checks)
	}
	st := store.New(db)

	echo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"response": "acknowledged"})
	}))
	defer echo.Close()

	client := transport.NewClient()
	registry := probe.NewDefaultRegistry(client, nil, nil)
	record("registry has garak adapter", requireAdapter(registry, "garak"))
	record("registry has pyrit adapter", requireAdapter(registry, "pyrit"))
	record("registry has langtest adapter", requireAdapter(registry, "langtest"))
	record("registry has promptfoo adapter", requireAdapter(registry, "promptfoo"))

	target := model.LLMConfig{
		ID:              coretypes.NewID(),
		Name:            "validate-echo-target",
		EndpointURL:     echo.URL,
		Method:          "POST",
		PayloadTemplate: `{"prompt": "{prompt}"}`,
	}
	record("persist llm config", st.PutLLMConfig(ctx, target))

	pipeline := model.Pipeline{
		ID:             coretypes.NewID(),
		Name:           "validate-pipeline",
		Libraries:      registry.Names(),
		TestCategories: []string{"prompt_injection", "jailbreak", "quality"},
		LLMConfigID:    target.ID,
	}
	record("persist pipeline", st.PutPipeline(ctx, pipeline))

	executionID := coretypes.NewID()
	err = st.CreateExecution(ctx, model.Execution{
		ID:          executionID,
		PipelineID:  pipeline.ID,
		LLMConfigID: target.ID,
		Status:      model.StatusPending,
	})
	record("create execution", err)

	engine := execution.New(st, registry)
	err = engine.Run(ctx, executionID)
	record("run execution end to end", err)

	exec, err := st.GetExecution(ctx, executionID)
	record("fetch execution", err)
	record("execution reached a terminal state", requireTerminal(exec))

	findingCount, err := st.CountFindingsByExecution(ctx, executionID)
	record("count findings", err)
	record("execution produced findings", requireAtLeastOne(findingCount))

	s, err := summary.Summarize(ctx, st, executionID, nil)
	record("summarize execution", err)
	record("safety score within [0,100]", requireScoreRange(s.SafetyScore))

	baselineExecutionID := coretypes.NewID()
	record("persist baseline execution row", st.CreateExecution(ctx, model.Execution{ID: baselineExecutionID, PipelineID: pipeline.ID, LLMConfigID: target.ID, Status: model.StatusPending}))
	record("transition baseline execution to running", st.TransitionExecution(ctx, baselineExecutionID, model.StatusPending, model.StatusRunning, store.ExecutionStamps{}))
	record("complete baseline execution", st.TransitionExecution(ctx, baselineExecutionID, model.StatusRunning, model.StatusCompleted, store.ExecutionStamps{}))
	baselineTag := "validate"
	record("register baseline", st.CreateBaseline(ctx, model.Baseline{ID: coretypes.NewID(), ExecutionID: baselineExecutionID, Name: "validate-baseline", Tag: &baselineTag}))

	selector := baseline.New(st)
	driftEngine := drift.New(st, selector, nil)
	_, err = driftEngine.Compare(ctx, executionID, model.ByTag("validate"), drift.Thresholds{Output: 0.2, Safety: 0.15, Distribution: 0.2, Embedding: 0.3, AgentTool: 0.25})
	record("run drift comparison against baseline", err)

	return reportValidation(cmd, checks)
}

func requireAdapter(r *probe.Registry, name string) error {
	if _, ok := r.Get(name); !ok {
		return fmt.Errorf("adapter %q not registered", name)
	}
	return nil
}

func requireTerminal(e model.Execution) error {
	if !e.Status.IsTerminal() {
		return fmt.Errorf("execution status %q is not terminal", e.Status)
	}
	return nil
}

func requireAtLeastOne(n int) error {
	if n < 1 {
		return fmt.Errorf("expected at least one finding, got %d", n)
	}
	return nil
}

func requireScoreRange(score float64) error {
	if score < 0 || score > 100 {
		return fmt.Errorf("safety score %v out of [0,100]", score)
	}
	return nil
}

func reportValidation(cmd *cobra.Command, checks []validateCheck) error {
	f := formatter(cmd)
	passed := 0
	for _, c := range checks {
		if c.err == nil {
			passed++
			_ = f.PrintSuccess(c.name)
		} else {
			_ = f.PrintError(fmt.Sprintf("%s: %v", c.name, c.err))
		}
	}
	if passed != len(checks) {
		return fmt.Errorf("validation failed: %d/%d checks passed", passed, len(checks))
	}
	return nil
}
