package projectinput

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/reactorcache/internal/cacheconfig"
	"git.home.luguber.info/inful/reactorcache/internal/exclusion"
	"git.home.luguber.info/inful/reactorcache/internal/hashkit"
	"git.home.luguber.info/inful/reactorcache/internal/modelnorm"
)

func newTestProject(t *testing.T) (*Project, *cacheconfig.Config) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src", "main", "java"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "main", "java", "Foo.java"), []byte("class Foo {}"), 0o600))

	project := &Project{
		BaseDir:       dir,
		GroupID:       "com.example",
		ArtifactID:    "demo",
		Version:       "1.0.0",
		MainSourceDir: "src/main/java",
		EffectiveModel: &modelnorm.Node{
			Name: "project",
			Children: []*modelnorm.Node{
				{Name: "version", Text: "1.0.0"},
			},
		},
	}
	cfg := &cacheconfig.Config{
		HashAlgorithm: "SHA-256",
		DefaultGlob:   "*",
	}
	return project, cfg
}

func TestCompute_DeterministicForIdenticalInputs(t *testing.T) {
	project, cfg := newTestProject(t)
	excl := exclusion.New(project.BaseDir, nil, nil)

	first, err := Compute(project, cfg, excl, nil, nil)
	require.NoError(t, err)
	second, err := Compute(project, cfg, excl, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, first.Checksum, second.Checksum)
}

func TestCompute_ChangesWhenFileContentChanges(t *testing.T) {
	project, cfg := newTestProject(t)
	excl := exclusion.New(project.BaseDir, nil, nil)

	before, err := Compute(project, cfg, excl, nil, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(project.BaseDir, "src", "main", "java", "Foo.java"), []byte("class Foo { int x; }"), 0o600))

	after, err := Compute(project, cfg, excl, nil, nil)
	require.NoError(t, err)

	assert.NotEqual(t, before.Checksum, after.Checksum)
}

func TestCompute_IncludesVersionDigestWhenConfigured(t *testing.T) {
	project, cfg := newTestProject(t)
	cfg.CalculateProjectVersionChecksum = true
	excl := exclusion.New(project.BaseDir, nil, nil)

	info, err := Compute(project, cfg, excl, nil, nil)
	require.NoError(t, err)
	require.NotEmpty(t, info.Items)
	assert.Equal(t, DigestVersion, info.Items[0].Kind)
}

func TestCompute_PomOnlyProjectHasNoFileDigests(t *testing.T) {
	project, cfg := newTestProject(t)
	project.PomOnly = true
	excl := exclusion.New(project.BaseDir, nil, nil)

	info, err := Compute(project, cfg, excl, nil, nil)
	require.NoError(t, err)
	for _, item := range info.Items {
		assert.NotEqual(t, DigestFile, item.Kind)
	}
}

type fakeReactor struct {
	checksums map[string]hashkit.Fingerprint
}

func (f fakeReactor) ReactorChecksum(groupID, artifactID string) (hashkit.Fingerprint, bool, error) {
	h, ok := f.checksums[groupID+":"+artifactID]
	return h, ok, nil
}

func TestCompute_ReactorDependencyUsesSiblingChecksum(t *testing.T) {
	project, cfg := newTestProject(t)
	project.Dependencies = []Dependency{
		{GroupID: "com.example", ArtifactID: "sibling", Version: "1.0.0"},
	}
	reactor := fakeReactor{checksums: map[string]hashkit.Fingerprint{
		"com.example:sibling": "deadbeef",
	}}
	excl := exclusion.New(project.BaseDir, nil, nil)

	info, err := Compute(project, cfg, excl, reactor, nil)
	require.NoError(t, err)

	var found bool
	for _, item := range info.Items {
		if item.Kind == DigestDependency && item.Value == "com.example:sibling" {
			found = true
			assert.Equal(t, hashkit.Fingerprint("deadbeef"), item.Hash)
		}
	}
	assert.True(t, found, "expected sibling dependency digest")
}

func TestCompute_SplitChecksumCombinesSourceAndDependencyAggregates(t *testing.T) {
	project, cfg := newTestProject(t)
	cfg.ExperimentalSplitChecksum = true
	project.Dependencies = []Dependency{
		{GroupID: "com.example", ArtifactID: "sibling", Version: "1.0.0"},
	}
	reactor := fakeReactor{checksums: map[string]hashkit.Fingerprint{
		"com.example:sibling": "deadbeef",
	}}
	excl := exclusion.New(project.BaseDir, nil, nil)

	info, err := Compute(project, cfg, excl, reactor, nil)
	require.NoError(t, err)

	assert.NotEmpty(t, info.SplitChecksum)
	assert.NotEqual(t, info.Checksum, info.SplitChecksum)
}

func TestCompute_SplitChecksumEmptyWhenNotConfigured(t *testing.T) {
	project, cfg := newTestProject(t)
	excl := exclusion.New(project.BaseDir, nil, nil)

	info, err := Compute(project, cfg, excl, nil, nil)
	require.NoError(t, err)

	assert.Empty(t, info.SplitChecksum)
}

func TestCompute_NonSnapshotExternalReleaseSkipped(t *testing.T) {
	project, cfg := newTestProject(t)
	project.Dependencies = []Dependency{
		{GroupID: "com.external", ArtifactID: "lib", Version: "2.0.0"},
	}
	excl := exclusion.New(project.BaseDir, nil, nil)

	info, err := Compute(project, cfg, excl, nil, nil)
	require.NoError(t, err)
	for _, item := range info.Items {
		assert.NotEqual(t, "com.external:lib", item.Value)
	}
}

func TestCompute_DynamicVersionWithoutReactorMatchSkipped(t *testing.T) {
	project, cfg := newTestProject(t)
	project.Dependencies = []Dependency{
		{GroupID: "com.example", ArtifactID: "floating", Version: "LATEST"},
	}
	excl := exclusion.New(project.BaseDir, nil, nil)

	info, err := Compute(project, cfg, excl, nil, nil)
	require.NoError(t, err)
	for _, item := range info.Items {
		assert.NotEqual(t, "com.example:floating", item.Value)
	}
}
