// Package projectinput computes a project's ProjectsInputInfo: the ordered
// set of digest items (effective model, input files, dependencies, plugin
// dependencies) whose aggregate hash is the project's cache fingerprint.
package projectinput

import (
	"git.home.luguber.info/inful/reactorcache/internal/hashkit"
	"git.home.luguber.info/inful/reactorcache/internal/modelnorm"
)

// DigestKind distinguishes the contribution a DigestItem makes to a project's
// aggregate fingerprint.
type DigestKind string

const (
	DigestVersion           DigestKind = "version"
	DigestPom                DigestKind = "pom"
	DigestFile               DigestKind = "file"
	DigestDependency          DigestKind = "dependency"
	DigestPluginDependency    DigestKind = "pluginDependency"
)

// DigestItem is one ordered contribution to a project's fingerprint.
type DigestItem struct {
	Kind  DigestKind
	Value string // relative path, dependency key, or literal text
	Hash  hashkit.Fingerprint
}

// ProjectsInputInfo is the full, ordered set of digest items for a project
// plus its final aggregate fingerprint.
//
// SplitChecksum is populated only when cacheconfig.Config.ExperimentalSplitChecksum
// is enabled: a second fingerprint combining a source-only aggregate and a
// dependency-only aggregate via mdfp.CalculateFingerprintFromParts, surfaced
// diagnostically alongside Checksum rather than replacing it.
type ProjectsInputInfo struct {
	ProjectKey    string
	Items         []DigestItem
	Checksum      hashkit.Fingerprint
	SplitChecksum hashkit.Fingerprint
}

// Dependency is a single resolved project dependency or plugin dependency.
type Dependency struct {
	GroupID    string
	ArtifactID string
	Version    string
	Type       string
	Classifier string
	Scope      string // "compile", "provided", "system", ...
	SystemPath string // populated only when Scope == "system"
	Snapshot   bool
	PomOnly    bool
}

// Key returns the versionless artifact key used for ordering and dedup:
// groupId:artifactId[:type][:classifier].
func (d Dependency) Key() string {
	key := d.GroupID + ":" + d.ArtifactID
	if d.Type != "" {
		key += ":" + d.Type
	}
	if d.Classifier != "" {
		key += ":" + d.Classifier
	}
	return key
}

// Execution is one plugin execution with its own configuration block.
type Execution struct {
	ID            string
	Goals         []string
	Configuration *modelnorm.Node
}

// Plugin is a build plugin declaration: its own configuration plus any
// per-execution configuration and declared dependencies.
type Plugin struct {
	GroupID             string
	ArtifactID          string
	Occurrence          int // disambiguates repeated declarations of the same plugin
	Configuration       *modelnorm.Node
	Executions          []Execution
	Dependencies        []Dependency
	ExcludeDependencies bool
}

// Key returns the plugin's coordinate key, groupId:artifactId; the
// occurrence index is not part of it.
func (p Plugin) Key() string {
	return p.GroupID + ":" + p.ArtifactID
}

// Project is the resolved input to a fingerprint computation: everything C5
// needs about one reactor member.
type Project struct {
	BaseDir    string
	GroupID    string
	ArtifactID string
	Version    string
	PomOnly    bool

	EffectiveModel *modelnorm.Node

	// Properties holds both standard and project-specific properties,
	// including any "input.*"-prefixed custom walk roots.
	Properties map[string]string

	MainSourceDir     string
	MainResourceDirs  []string
	TestSourceDir     string
	TestResourceDirs  []string

	BuildPlugins []Plugin
	Dependencies []Dependency
}

// Key returns the project's reactor coordinate key.
func (p Project) Key() string {
	return p.GroupID + ":" + p.ArtifactID
}
