package projectcalc

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/reactorcache/internal/foundation/errors"

	"git.home.luguber.info/inful/reactorcache/internal/cacheconfig"
	"git.home.luguber.info/inful/reactorcache/internal/modelnorm"
	"git.home.luguber.info/inful/reactorcache/internal/projectinput"
)

type staticSource struct {
	mu       sync.Mutex
	projects map[string]*projectinput.Project
	calls    int32
}

func (s *staticSource) Project(groupID, artifactID string) (*projectinput.Project, bool) {
	atomic.AddInt32(&s.calls, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[groupID+":"+artifactID]
	return p, ok
}

func newProjectAt(t *testing.T, groupID, artifactID string) *projectinput.Project {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "Main.txt"), []byte(artifactID), 0o600))
	return &projectinput.Project{
		BaseDir:        dir,
		GroupID:        groupID,
		ArtifactID:     artifactID,
		Version:        "1.0.0",
		MainSourceDir:  "src",
		EffectiveModel: &modelnorm.Node{Name: "project"},
	}
}

func newTestConfig() *cacheconfig.Config {
	return &cacheconfig.Config{HashAlgorithm: "SHA-256", DefaultGlob: "*"}
}

func TestCalculate_MemoizesResult(t *testing.T) {
	project := newProjectAt(t, "com.example", "a")
	source := &staticSource{projects: map[string]*projectinput.Project{}}
	calc := New(newTestConfig(), source, nil)

	first, err := calc.Calculate(project)
	require.NoError(t, err)
	second, err := calc.Calculate(project)
	require.NoError(t, err)

	assert.Equal(t, first.Checksum, second.Checksum)
	assert.Same(t, first, second)
}

func TestCalculate_ConcurrentCallersConverge(t *testing.T) {
	project := newProjectAt(t, "com.example", "a")
	source := &staticSource{projects: map[string]*projectinput.Project{}}
	calc := New(newTestConfig(), source, nil)

	const workers = 16
	results := make([]*projectinput.ProjectsInputInfo, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			info, err := calc.Calculate(project)
			require.NoError(t, err)
			results[i] = info
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		assert.Equal(t, results[0].Checksum, results[i].Checksum)
	}
}

func TestCalculate_DependencyTriggersReactorCalculation(t *testing.T) {
	sibling := newProjectAt(t, "com.example", "sibling")
	main := newProjectAt(t, "com.example", "main")
	main.Dependencies = []projectinput.Dependency{
		{GroupID: "com.example", ArtifactID: "sibling", Version: "1.0.0"},
	}

	source := &staticSource{projects: map[string]*projectinput.Project{
		"com.example:sibling": sibling,
	}}
	calc := New(newTestConfig(), source, nil)

	info, err := calc.Calculate(main)
	require.NoError(t, err)

	siblingInfo, err := calc.Calculate(sibling)
	require.NoError(t, err)

	var found bool
	for _, item := range info.Items {
		if item.Kind == projectinput.DigestDependency && item.Value == "com.example:sibling" {
			found = true
			assert.Equal(t, siblingInfo.Checksum, item.Hash)
		}
	}
	assert.True(t, found, "expected dependency on sibling to carry its reactor checksum")
}

func TestCalculate_ReactorCycleReturnsConfigError(t *testing.T) {
	a := newProjectAt(t, "com.example", "a")
	b := newProjectAt(t, "com.example", "b")
	a.Dependencies = []projectinput.Dependency{
		{GroupID: "com.example", ArtifactID: "b", Version: "1.0.0"},
	}
	b.Dependencies = []projectinput.Dependency{
		{GroupID: "com.example", ArtifactID: "a", Version: "1.0.0"},
	}

	source := &staticSource{projects: map[string]*projectinput.Project{
		"com.example:a": a,
		"com.example:b": b,
	}}
	calc := New(newTestConfig(), source, nil)

	done := make(chan error, 1)
	go func() {
		_, err := calc.Calculate(a)
		done <- err
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		classified, ok := ferrors.AsClassified(err)
		require.True(t, ok, "expected a ClassifiedError")
		assert.Equal(t, ferrors.CategoryConfig, classified.Category())
	case <-time.After(5 * time.Second):
		t.Fatal("reactor cycle deadlocked instead of surfacing a ConfigError")
	}
}
