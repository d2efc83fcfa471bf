package execstrategy

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/reactorcache/internal/buildrecord"
	"git.home.luguber.info/inful/reactorcache/internal/logfields"
)

// StepOutcome is what running (or reading) one step produced.
type StepOutcome struct {
	Properties []buildrecord.TrackedProperty
}

// StepExecutor runs one build step for real.
type StepExecutor interface {
	Execute(ctx context.Context, step Step) (StepOutcome, error)
}

// PropertyReader resolves a step's current tracked-property values without
// executing it, for reconciliation against a cached CompletedExecution.
type PropertyReader interface {
	ReadProperties(ctx context.Context, step Step) ([]buildrecord.TrackedProperty, error)
}

// RestoreFunc restores a project's cached artifacts to their canonical
// on-disk locations.
type RestoreFunc func(ctx context.Context) error

// Outcome is the result of running a project's steps through a Strategy.
type Outcome struct {
	Executed     []Step
	Skipped      []Step
	FellBack     bool // a reconciliation mismatch or restore failure forced a full rebuild
	Executions   []buildrecord.CompletedExecution
	highestPhase int
}

func newOutcome() *Outcome {
	return &Outcome{highestPhase: -1}
}

func (o *Outcome) reachedPhase(p Phase) {
	if idx, ok := phaseIndex[p]; ok && idx > o.highestPhase {
		o.highestPhase = idx
	}
}

// compileOnly reports whether the outcome never reached past the "compile"
// lifecycle phase.
func (o *Outcome) compileOnly() bool {
	return o.highestPhase <= phaseIndex[compilePhase]
}

// Strategy implements the C10 decision protocol: partition by phase, try the
// cached segment on a hit, fall back to a full build on any reconciliation
// or restore failure.
type Strategy struct {
	executor                 StepExecutor
	reader                   PropertyReader
	reconciler               *Reconciler
	runAlways                *RunAlwaysMatcher
	restore                  RestoreFunc
	failFast                 bool
	writeRecordOnCompileOnly bool
	logger                   *slog.Logger
}

// New constructs a Strategy. failFast mirrors cacheconfig's Remote.FailFast:
// when true, a restore or reconciliation-read error propagates instead of
// falling back to a full build. WriteRecordOnCompileOnly defaults to true;
// use WithWriteRecordOnCompileOnly to turn it off.
func New(executor StepExecutor, reader PropertyReader, reconciler *Reconciler, runAlways *RunAlwaysMatcher, restore RestoreFunc, failFast bool) *Strategy {
	return &Strategy{
		executor:                 executor,
		reader:                   reader,
		reconciler:               reconciler,
		runAlways:                runAlways,
		restore:                  restore,
		failFast:                 failFast,
		writeRecordOnCompileOnly: true,
		logger:                   slog.Default(),
	}
}

// WithLogger sets a custom logger and returns the strategy for chaining.
func (s *Strategy) WithLogger(logger *slog.Logger) *Strategy {
	s.logger = logger
	return s
}

// WithWriteRecordOnCompileOnly sets the policy ShouldWriteRecord consults for
// a build that never ran past the "compile" phase. Default true: a
// compile-only partial build still commits a record, so a later full build
// on unchanged inputs can hit cache for the steps it already proved
// deterministic.
func (s *Strategy) WithWriteRecordOnCompileOnly(enabled bool) *Strategy {
	s.writeRecordOnCompileOnly = enabled
	return s
}

// ShouldWriteRecord reports whether the host tool should commit a
// BuildRecord for outcome, honoring the WriteRecordOnCompileOnly policy when
// the build never progressed past the "compile" phase.
func (s *Strategy) ShouldWriteRecord(outcome *Outcome) bool {
	if s.writeRecordOnCompileOnly {
		return true
	}
	return !outcome.compileOnly()
}

// Run executes a project's steps under the cache decision protocol. record
// is nil on a cache miss: every step runs normally. On a hit, the cached
// segment is skipped when reconciliation holds and artifacts restore
// cleanly; otherwise Run falls back to running the cached segment too.
func (s *Strategy) Run(ctx context.Context, steps []Step, record *buildrecord.BuildRecord) (*Outcome, error) {
	highestCompleted := Phase("")
	if record != nil {
		highestCompleted = Phase(record.HighestCompletedPhase)
	}
	clean, cached, postCached := Partition(steps, highestCompleted)
	outcome := newOutcome()

	if err := s.runSteps(ctx, clean, outcome); err != nil {
		return outcome, err
	}

	if record == nil {
		if err := s.runSteps(ctx, cached, outcome); err != nil {
			return outcome, err
		}
		return outcome, s.runSteps(ctx, postCached, outcome)
	}

	hit, err := s.reconcileCachedSegment(ctx, cached, record)
	if err != nil {
		if s.failFast {
			return outcome, err
		}
		s.logger.Warn("cache restore failed, falling back to full build", logfields.Error(err))
		hit = false
	}

	if !hit {
		outcome.FellBack = true
		if err := s.runSteps(ctx, cached, outcome); err != nil {
			return outcome, err
		}
	} else if err := s.commitCachedSegment(ctx, cached, record, outcome); err != nil {
		return outcome, err
	}

	return outcome, s.runSteps(ctx, postCached, outcome)
}

// reconcileCachedSegment checks whether every non-runAlways step in cached
// still matches its recorded tracked properties. It performs no side
// effects: runAlways steps are deliberately left unexecuted here, since a
// step must never run for real until the whole segment is confirmed to hit
// cache. A mismatch returns hit=false (no error), which the caller treats as
// a normal fall back to the remaining steps, not a failure.
func (s *Strategy) reconcileCachedSegment(ctx context.Context, cached []Step, record *buildrecord.BuildRecord) (bool, error) {
	executionsByStep := executionsByStepID(record)

	for _, step := range cached {
		if s.runAlways.Matches(step) {
			continue
		}

		current, err := s.reader.ReadProperties(ctx, step)
		if err != nil {
			return false, err
		}

		cachedExec := executionsByStep[step.ID]
		if !s.reconciler.Matches(step.ArtifactID, step.Goal, cachedExec.Properties, current) {
			s.logger.Info("tracked property mismatch, falling back to full build",
				slog.String("step", step.ID))
			return false, nil
		}
	}
	return true, nil
}

// commitCachedSegment runs the cached segment's runAlways steps for real,
// restores everything else from cache, and records skip/execution
// bookkeeping. Only called once reconcileCachedSegment has confirmed a hit.
// A runAlways step's error is returned as is. A restore error propagates
// when failFast is set; otherwise the remaining (non-runAlways) steps of the
// segment run for real instead and the outcome is marked FellBack.
func (s *Strategy) commitCachedSegment(ctx context.Context, cached []Step, record *buildrecord.BuildRecord, outcome *Outcome) error {
	executionsByStep := executionsByStepID(record)

	var skipped []Step
	for _, step := range cached {
		if s.runAlways.Matches(step) {
			if err := s.runStep(ctx, step, outcome); err != nil {
				return err
			}
			continue
		}
		skipped = append(skipped, step)
	}

	if err := s.restore(ctx); err != nil {
		if s.failFast {
			return err
		}
		s.logger.Warn("cache restore failed, falling back to full build", logfields.Error(err))
		outcome.FellBack = true
		return s.runSteps(ctx, skipped, outcome)
	}

	outcome.Skipped = append(outcome.Skipped, skipped...)
	for _, step := range skipped {
		outcome.reachedPhase(step.Phase)
		if ce, ok := executionsByStep[step.ID]; ok {
			outcome.Executions = append(outcome.Executions, ce)
		}
	}
	return nil
}

func executionsByStepID(record *buildrecord.BuildRecord) map[string]buildrecord.CompletedExecution {
	m := make(map[string]buildrecord.CompletedExecution, len(record.CompletedExecutions))
	for _, ce := range record.CompletedExecutions {
		m[ce.StepID] = ce
	}
	return m
}

func (s *Strategy) runSteps(ctx context.Context, steps []Step, outcome *Outcome) error {
	for _, step := range steps {
		if err := s.runStep(ctx, step, outcome); err != nil {
			return err
		}
	}
	return nil
}

func (s *Strategy) runStep(ctx context.Context, step Step, outcome *Outcome) error {
	result, err := s.executor.Execute(ctx, step)
	if err != nil {
		return err
	}
	outcome.Executed = append(outcome.Executed, step)
	outcome.reachedPhase(step.Phase)
	outcome.Executions = append(outcome.Executions, buildrecord.CompletedExecution{
		StepID:     step.ID,
		Properties: result.Properties,
	})
	return nil
}
