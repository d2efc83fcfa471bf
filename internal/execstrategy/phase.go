// Package execstrategy is C10: it wraps the host's per-step executor,
// partitioning a project's build steps into clean/cached/post-cached
// segments, skipping the cached segment on a reconciled hit, and enforcing
// always-run rules.
package execstrategy

// Phase is a lifecycle phase name, e.g. "compile" or "test".
type Phase string

// lifecycleOrder is the full clean-then-build lifecycle, in execution order.
// Steps outside this list are treated as running after everything cached
// completes, since their position relative to highestCompletedPhase is
// otherwise undefined.
var lifecycleOrder = []Phase{
	"pre-clean", "clean", "post-clean",
	"validate", "initialize", "generate-sources", "process-sources",
	"generate-resources", "process-resources", "compile", "process-classes",
	"generate-test-sources", "process-test-sources", "generate-test-resources",
	"process-test-resources", "test-compile", "process-test-classes", "test",
	"prepare-package", "package", "pre-integration-test", "integration-test",
	"post-integration-test", "verify", "install", "deploy",
}

const lastCleanPhase Phase = "post-clean"

// compilePhase is the boundary WriteRecordOnCompileOnly checks: a build that
// reaches no further than this phase is a "compile-only" partial build.
const compilePhase Phase = "compile"

var phaseIndex = buildPhaseIndex()

func buildPhaseIndex() map[Phase]int {
	idx := make(map[Phase]int, len(lifecycleOrder))
	for i, p := range lifecycleOrder {
		idx[p] = i
	}
	return idx
}

// Step is one build step: a plugin execution at a given lifecycle phase.
type Step struct {
	ID          string // stable identifier, e.g. "artifactId:executionId:goal"
	ArtifactID  string
	ExecutionID string
	Goal        string
	Phase       Phase
}

// Partition splits steps into three contiguous segments by phase: clean
// (phases up to and including the clean lifecycle's last phase), cached
// (after clean, up to and including highestCompletedPhase), and post-cached
// (strictly after). Steps at an unrecognized phase fall into post-cached.
func Partition(steps []Step, highestCompletedPhase Phase) (clean, cached, postCached []Step) {
	cleanBoundary := phaseIndex[lastCleanPhase]
	completedBoundary, known := phaseIndex[highestCompletedPhase]
	if !known {
		completedBoundary = cleanBoundary
	}

	for _, step := range steps {
		idx, ok := phaseIndex[step.Phase]
		if !ok {
			postCached = append(postCached, step)
			continue
		}
		switch {
		case idx <= cleanBoundary:
			clean = append(clean, step)
		case idx <= completedBoundary:
			cached = append(cached, step)
		default:
			postCached = append(postCached, step)
		}
	}
	return clean, cached, postCached
}
