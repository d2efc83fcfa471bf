package cachecontrol

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/reactorcache/internal/buildrecord"
	"git.home.luguber.info/inful/reactorcache/internal/hashkit"
	"git.home.luguber.info/inful/reactorcache/internal/projectinput"
)

type fakeCalculator struct {
	checksum hashkit.Fingerprint
	err      error
}

func (f fakeCalculator) Calculate(project *projectinput.Project) (*projectinput.ProjectsInputInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &projectinput.ProjectsInputInfo{ProjectKey: project.Key(), Checksum: f.checksum}, nil
}

func newTestStore(t *testing.T) *buildrecord.Store {
	t.Helper()
	local, err := buildrecord.NewLocalStore(t.TempDir(), 3)
	require.NoError(t, err)
	t.Cleanup(func() { _ = local.Close() })
	return buildrecord.NewStore(local, nil, false, false, false)
}

func testProject() *projectinput.Project {
	return &projectinput.Project{GroupID: "com.example", ArtifactID: "demo", Version: "1.0.0"}
}

func TestLookup_SkipCacheAlwaysMisses(t *testing.T) {
	controller := New(fakeCalculator{checksum: "deadbeef"}, newTestStore(t), false, nil)

	result, err := controller.Lookup(testProject(), true)
	require.NoError(t, err)
	assert.Equal(t, StatusMiss, result.Status)
	assert.Empty(t, result.Fingerprint)
}

func TestLookup_MissWhenNoRecordExists(t *testing.T) {
	controller := New(fakeCalculator{checksum: "deadbeef"}, newTestStore(t), false, nil)

	result, err := controller.Lookup(testProject(), false)
	require.NoError(t, err)
	assert.Equal(t, StatusMiss, result.Status)
	assert.Equal(t, "deadbeef", result.Fingerprint)
}

func TestCommitThenLookup_HitsLocally(t *testing.T) {
	store := newTestStore(t)
	controller := New(fakeCalculator{checksum: "deadbeef"}, store, false, nil)
	project := testProject()

	srcDir := t.TempDir()
	jarPath := filepath.Join(srcDir, "demo.jar")
	require.NoError(t, os.WriteFile(jarPath, []byte("jar-bytes"), 0o600))

	err := controller.Commit(CommitInput{
		Coordinates: buildrecord.Coordinates{GroupID: project.GroupID, ArtifactID: project.ArtifactID, Version: project.Version},
		Fingerprint: "deadbeef",
		Input:       &projectinput.ProjectsInputInfo{Checksum: "deadbeef"},
		Primary:     &buildrecord.ArtifactEntry{FileName: "demo.jar"},
		Files:       map[string]string{"demo.jar": jarPath},
	})
	require.NoError(t, err)

	result, err := controller.Lookup(project, false)
	require.NoError(t, err)
	assert.Equal(t, StatusHit, result.Status)
	assert.Equal(t, "LOCAL", result.Source)
	require.NotNil(t, result.Record)
	assert.Equal(t, "demo.jar", result.Record.Primary.FileName)
}

func TestCommit_SkipSaveIsNoOp(t *testing.T) {
	store := newTestStore(t)
	controller := New(fakeCalculator{checksum: "deadbeef"}, store, false, nil)
	project := testProject()

	err := controller.Commit(CommitInput{
		Coordinates: buildrecord.Coordinates{GroupID: project.GroupID, ArtifactID: project.ArtifactID, Version: project.Version},
		Fingerprint: "deadbeef",
		Input:       &projectinput.ProjectsInputInfo{Checksum: "deadbeef"},
		SkipSave:    true,
	})
	require.NoError(t, err)

	result, err := controller.Lookup(project, false)
	require.NoError(t, err)
	assert.Equal(t, StatusMiss, result.Status, "a skipSave commit must not produce a later cache hit")
}

func TestLookup_PropagatesCalculatorError(t *testing.T) {
	controller := New(fakeCalculator{err: assert.AnError}, newTestStore(t), false, nil)

	_, err := controller.Lookup(testProject(), false)
	assert.Error(t, err)
}
