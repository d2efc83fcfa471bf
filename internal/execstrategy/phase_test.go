package execstrategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartition_SplitsByCleanCachedPostCached(t *testing.T) {
	steps := []Step{
		{ID: "clean:default:clean", Phase: "clean"},
		{ID: "compiler:default:compile", Phase: "compile"},
		{ID: "surefire:default:test", Phase: "test"},
		{ID: "jar:default:package", Phase: "package"},
	}

	clean, cached, postCached := Partition(steps, "test")

	assert.Equal(t, []Step{steps[0]}, clean)
	assert.Equal(t, []Step{steps[1], steps[2]}, cached)
	assert.Equal(t, []Step{steps[3]}, postCached)
}

func TestPartition_UnknownPhaseFallsIntoPostCached(t *testing.T) {
	steps := []Step{{ID: "custom:weird", Phase: "some-custom-phase"}}

	clean, cached, postCached := Partition(steps, "compile")

	assert.Empty(t, clean)
	assert.Empty(t, cached)
	assert.Equal(t, steps, postCached)
}

func TestPartition_NoHighestCompletedPhaseTreatsEverythingAsPostClean(t *testing.T) {
	steps := []Step{
		{ID: "clean:clean", Phase: "clean"},
		{ID: "compiler:compile", Phase: "compile"},
	}

	clean, cached, postCached := Partition(steps, "")

	assert.Equal(t, []Step{steps[0]}, clean)
	assert.Empty(t, cached)
	assert.Equal(t, []Step{steps[1]}, postCached)
}
