package execstrategy

import (
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/reactorcache/internal/buildrecord"
	"git.home.luguber.info/inful/reactorcache/internal/cacheconfig"
)

// Reconciler compares a step's current tracked-property values against the
// values recorded in a cached CompletedExecution, applying each property's
// skipValue/defaultValue relaxation rules.
type Reconciler struct {
	byPluginGoal map[string]cacheconfig.ReconcilePluginConfig
}

// NewReconciler indexes a session's reconcile rules by artifactId:goal.
func NewReconciler(cfg cacheconfig.ReconcileConfig) *Reconciler {
	byPluginGoal := make(map[string]cacheconfig.ReconcilePluginConfig, len(cfg.Plugins))
	for _, plugin := range cfg.Plugins {
		byPluginGoal[plugin.ArtifactID+":"+plugin.Goal] = plugin
	}
	return &Reconciler{byPluginGoal: byPluginGoal}
}

// Matches reports whether current still agrees with cached for the given
// step, per the reconciliation rules declared for artifactID:goal. Without a
// declared rule, a tracked current value must equal its cached value; a
// tracked current value with no cached counterpart matches only when empty.
// Cached values with no tracked current counterpart are not checked.
func (r *Reconciler) Matches(artifactID, goal string, cached, current []buildrecord.TrackedProperty) bool {
	propertyRules := map[string]cacheconfig.ReconcilePropertyConfig{}
	if plugin, ok := r.byPluginGoal[artifactID+":"+goal]; ok {
		for _, rule := range plugin.Reconciles {
			propertyRules[rule.PropertyName] = rule
		}
	}

	cachedByName := make(map[string]string, len(cached))
	for _, p := range cached {
		if p.Tracked {
			cachedByName[p.Name] = p.Value
		}
	}

	for _, cur := range current {
		if !cur.Tracked {
			continue
		}
		rule := propertyRules[cur.Name]

		if rule.SkipValue != "" && cur.Value == rule.SkipValue {
			continue
		}

		cachedValue, hadCached := cachedByName[cur.Name]
		if !hadCached {
			if rule.DefaultValue != "" && cur.Value == rule.DefaultValue {
				continue
			}
			if cur.Value == "" {
				continue
			}
			return false
		}

		if cur.Value != cachedValue {
			return false
		}
	}
	return true
}

// NormalizePath makes a path relative to baseDir, matching the tracked-value
// normalization applied before properties are compared.
func NormalizePath(baseDir, path string) string {
	rel, err := filepath.Rel(baseDir, path)
	if err != nil {
		return path
	}
	return rel
}

// FormatList renders a list-valued property as "[e1, e2, ...]".
func FormatList(items []string) string {
	return "[" + strings.Join(items, ", ") + "]"
}

// FormatArray renders an array-valued property as "{e1,e2,...}".
func FormatArray(items []string) string {
	return "{" + strings.Join(items, ",") + "}"
}
