package rollback

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yuchenwei/rewind/internal/checkpoint"
	"github.com/yuchenwei/rewind/internal/config"
	"github.com/yuchenwei/rewind/internal/filelock"
	"github.com/yuchenwei/rewind/internal/toolchain"
	"github.com/yuchenwei/rewind/internal/vcs"
	"github.com/yuchenwei/rewind/internal/verify"
)

// step is one planned restore step. required failures abort the sequence
// and fail the attempt; authority failures fail the attempt without
// aborting it (verification); everything else is advisory.
type step struct {
	name      string
	required  bool
	authority bool
	run       func(ctx context.Context, cp *checkpoint.Checkpoint, out *Step) error
}

// Engine executes rollback strategies against stored checkpoints. One
// restore runs at a time per project root; steps execute strictly in
// sequence because later steps depend on the state left by earlier ones.
type Engine struct {
	cfg      *config.Config
	store    *checkpoint.Store
	capturer *checkpoint.Capturer
	git      *vcs.Git
	tools    *toolchain.Runner
	verifier *verify.Verifier
	history  History
	log      zerolog.Logger
}

func NewEngine(
	cfg *config.Config,
	store *checkpoint.Store,
	capturer *checkpoint.Capturer,
	git *vcs.Git,
	tools *toolchain.Runner,
	verifier *verify.Verifier,
	history History,
	log zerolog.Logger,
) *Engine {
	return &Engine{
		cfg:      cfg,
		store:    store,
		capturer: capturer,
		git:      git,
		tools:    tools,
		verifier: verifier,
		history:  history,
		log:      log,
	}
}

// Execute restores the given checkpoint. An empty override uses the
// strategy recorded at capture time. Load failures (including unknown ids)
// return an error with no history entry; every attempt that starts is
// appended to history exactly once, successful or not, and returned with a
// nil error so callers can inspect per-step progress.
func (e *Engine) Execute(ctx context.Context, checkpointID string, override Strategy, reason string) (*Result, error) {
	cp, err := e.store.Load(checkpointID)
	if err != nil {
		return nil, err
	}

	strategy := override
	if strategy == "" {
		parsed, err := ParseStrategy(cp.Strategy)
		if err != nil {
			e.log.Warn().Str("checkpoint_id", cp.ID).Str("recorded", cp.Strategy).
				Msg("checkpoint records an unknown strategy, falling back to graceful")
			parsed = Graceful
		}
		strategy = parsed
	}
	if !strategy.Valid() {
		return nil, fmt.Errorf("rollback: unknown strategy %q", strategy)
	}

	lock, err := filelock.AcquireProject(e.cfg.LocksDir(), e.cfg.ProjectRoot)
	if err != nil {
		return nil, fmt.Errorf("rollback: acquire project lock: %w", err)
	}
	defer lock.Release()

	e.log.Info().
		Str("checkpoint_id", cp.ID).
		Str("strategy", strategy.String()).
		Str("reason", reason).
		Msg("rollback started")

	result := &Result{
		AttemptID:      uuid.New().String(),
		CheckpointID:   cp.ID,
		CheckpointName: cp.Name,
		Strategy:       strategy,
		Reason:         reason,
		StartedAt:      time.Now().UTC().Format(time.RFC3339Nano),
	}

	e.runSteps(ctx, cp, e.plan(strategy, cp), result)

	result.CompletedAt = time.Now().UTC().Format(time.RFC3339Nano)
	if err := e.history.Append(result); err != nil {
		e.log.Error().Err(err).Msg("failed to append rollback history")
	}

	e.log.Info().
		Str("checkpoint_id", cp.ID).
		Bool("success", result.Success).
		Int("steps", len(result.Steps)).
		Msg("rollback finished")
	return result, nil
}

// runSteps drives the planned sequence through one uniform runner. Step
// failures become data in the result; they never propagate as errors.
func (e *Engine) runSteps(ctx context.Context, cp *checkpoint.Checkpoint, plan []step, result *Result) {
	success := true
	for _, st := range plan {
		out := Step{Name: st.name, Required: st.required, Status: StepSuccess}
		if err := st.run(ctx, cp, &out); err != nil {
			out.Status = StepFailure
			out.Error = err.Error()
		}
		result.Steps = append(result.Steps, out)

		if !out.OK() {
			e.log.Warn().Str("step", st.name).Str("error", out.Error).Msg("rollback step failed")
			if st.required {
				success = false
				break
			}
			if st.authority {
				// Verification failure downgrades the attempt but the
				// remaining advisory steps still run.
				success = false
			}
		}
	}
	result.Success = success
}

// plan returns the fixed step sequence for a strategy.
func (e *Engine) plan(strategy Strategy, cp *checkpoint.Checkpoint) []step {
	switch strategy {
	case Immediate:
		return e.immediatePlan(cp)
	case Graceful:
		return e.gracefulPlan()
	case Partial:
		return e.partialPlan()
	case Manual:
		return e.manualPlan()
	}
	return nil
}

func (e *Engine) immediatePlan(cp *checkpoint.Checkpoint) []step {
	plan := []step{
		{name: "restore_files", required: true, run: e.stepRestoreFiles(false)},
		{name: "restore_dependencies", required: true, run: e.stepRestoreDependencies},
		{name: "restore_environment", required: true, run: e.stepRestoreEnvironment},
	}
	if cp.VCSRevision != "" {
		plan = append(plan, step{name: "rollback_git", required: true, run: e.stepResetVCS})
	}
	return plan
}

func (e *Engine) gracefulPlan() []step {
	return []step{
		// The safety checkpoint comes first: if even the "undo the
		// rollback" net cannot be taken, abort before touching anything.
		{name: "safety_checkpoint", required: true, run: e.stepSafetyCheckpoint},
		{name: "status_check", run: e.stepStatusCheck},
		{name: "stop_services", run: e.stepService("stop")},
		{name: "restore_files", required: true, run: e.stepRestoreFiles(false)},
		{name: "restore_dependencies", required: true, run: e.stepRestoreDependencies},
		{name: "verify_rollback", authority: true, run: e.stepVerify},
		{name: "restart_services", run: e.stepService("start")},
	}
}

func (e *Engine) partialPlan() []step {
	return []step{
		{name: "restore_core_files", required: true, run: e.stepRestoreFiles(true)},
		{name: "verify_partial", required: true, run: e.stepVerifyPartial},
	}
}

func (e *Engine) manualPlan() []step {
	return []step{
		{name: "generate_guide", required: true, run: e.stepGenerateGuide},
	}
}
