package execstrategy

import (
	"strings"

	"git.home.luguber.info/inful/reactorcache/internal/cacheconfig"
	"git.home.luguber.info/inful/reactorcache/internal/util/sets"
)

// RunAlwaysMatcher decides whether a step must execute even on a cache hit,
// per the session's runAlways rules plus the alwaysRunPlugins host-property
// override.
type RunAlwaysMatcher struct {
	cfg      cacheconfig.RunAlwaysConfig
	override sets.Set[string]
}

// NewRunAlwaysMatcher builds a matcher from the session's runAlways config
// and the raw alwaysRunPlugins host property (a comma-separated artifactId
// list; empty when unset).
func NewRunAlwaysMatcher(cfg cacheconfig.RunAlwaysConfig, alwaysRunPluginsProperty string) *RunAlwaysMatcher {
	override := sets.New[string]()
	for _, artifactID := range strings.Split(alwaysRunPluginsProperty, ",") {
		artifactID = strings.TrimSpace(artifactID)
		if artifactID != "" {
			override.Add(artifactID)
		}
	}
	return &RunAlwaysMatcher{cfg: cfg, override: override}
}

// Matches reports whether step must run regardless of cache state.
func (m *RunAlwaysMatcher) Matches(step Step) bool {
	if m.override.Has(step.ArtifactID) {
		return true
	}
	for _, sel := range m.cfg.Plugins {
		if sel.ArtifactID == step.ArtifactID {
			return true
		}
	}
	for _, sel := range m.cfg.Executions {
		if sel.ArtifactID == step.ArtifactID && sel.ExecutionID == step.ExecutionID {
			return true
		}
	}
	for _, sel := range m.cfg.Goals {
		if sel.ArtifactID == step.ArtifactID && sel.Goal == step.Goal {
			return true
		}
	}
	return false
}
