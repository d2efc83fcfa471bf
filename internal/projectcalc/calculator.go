// Package projectcalc memoizes ProjectsInputInfo per project, making
// concurrent calculate(project) calls for the same project converge on one
// in-flight computation.
package projectcalc

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"git.home.luguber.info/inful/reactorcache/internal/cacheconfig"
	"git.home.luguber.info/inful/reactorcache/internal/exclusion"
	ferrors "git.home.luguber.info/inful/reactorcache/internal/foundation/errors"
	"git.home.luguber.info/inful/reactorcache/internal/hashkit"
	"git.home.luguber.info/inful/reactorcache/internal/projectinput"
)

// Source resolves a reactor coordinate to its Project definition, so the
// calculator can recursively calculate an as-yet-uncomputed dependency.
type Source interface {
	Project(groupID, artifactID string) (*projectinput.Project, bool)
}

// Calculator computes and memoizes ProjectsInputInfo, one per reactor
// project, enforcing the dependency order a project's own dependency
// digests require.
type Calculator struct {
	cfg      *cacheconfig.Config
	source   Source
	resolver projectinput.ArtifactResolver

	group singleflight.Group

	mu    sync.RWMutex
	cache map[string]*projectinput.ProjectsInputInfo
}

// New constructs a Calculator. resolver may be nil if no snapshot
// dependencies in this reactor require external resolution.
func New(cfg *cacheconfig.Config, source Source, resolver projectinput.ArtifactResolver) *Calculator {
	return &Calculator{
		cfg:      cfg,
		source:   source,
		resolver: resolver,
		cache:    map[string]*projectinput.ProjectsInputInfo{},
	}
}

// Calculate returns the project's ProjectsInputInfo, computing it once and
// memoizing the result. Concurrent callers for the same project block on the
// single in-flight computation and receive the identical result.
func (c *Calculator) Calculate(project *projectinput.Project) (*projectinput.ProjectsInputInfo, error) {
	return c.calculate(project, nil)
}

// calculate computes project's info, threading the chain of reactor project
// keys currently being resolved on this call path (inProgress). A cyclic
// reactor dependency re-enters calculate for a key already on that chain
// before it ever reaches singleflight, so it surfaces as ConfigError instead
// of deadlocking on Group.Do's own wait (per §9 Design Notes). inProgress is
// never shared across unrelated call chains, so two independent goroutines
// computing a shared dependency are unaffected: singleflight already
// converges those without re-entering the callback.
func (c *Calculator) calculate(project *projectinput.Project, inProgress map[string]bool) (*projectinput.ProjectsInputInfo, error) {
	key := project.Key()

	if info, ok := c.lookup(key); ok {
		return info, nil
	}

	if inProgress[key] {
		return nil, ferrors.ConfigError("reactor dependency cycle detected at " + key).Build()
	}

	path := make(map[string]bool, len(inProgress)+1)
	for k := range inProgress {
		path[k] = true
	}
	path[key] = true

	v, err, _ := c.group.Do(key, func() (any, error) {
		if info, ok := c.lookup(key); ok {
			return info, nil
		}

		excl := exclusion.New(project.BaseDir, c.cfg, project.Properties)
		info, err := projectinput.Compute(project, c.cfg, excl, &pathReactor{calc: c, path: path}, c.resolver)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[key] = info
		c.mu.Unlock()
		return info, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*projectinput.ProjectsInputInfo), nil
}

func (c *Calculator) lookup(key string) (*projectinput.ProjectsInputInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.cache[key]
	return info, ok
}

// ReactorChecksum implements projectinput.Reactor: a dependency on another
// reactor project triggers that project's own calculation, inducing the
// ordering constraint described in spec step 5.
func (c *Calculator) ReactorChecksum(groupID, artifactID string) (hashkit.Fingerprint, bool, error) {
	dep, ok := c.source.Project(groupID, artifactID)
	if !ok {
		return "", false, nil
	}
	info, err := c.Calculate(dep)
	if err != nil {
		return "", false, err
	}
	return info.Checksum, true, nil
}

// pathReactor adapts Calculator to projectinput.Reactor for one recursive
// descent, carrying the chain of reactor keys already being resolved so a
// cycle surfaces as ConfigError instead of a singleflight self-deadlock.
type pathReactor struct {
	calc *Calculator
	path map[string]bool
}

func (r *pathReactor) ReactorChecksum(groupID, artifactID string) (hashkit.Fingerprint, bool, error) {
	dep, ok := r.calc.source.Project(groupID, artifactID)
	if !ok {
		return "", false, nil
	}
	info, err := r.calc.calculate(dep, r.path)
	if err != nil {
		return "", false, err
	}
	return info.Checksum, true, nil
}
