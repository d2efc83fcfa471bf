// Package hostmodel documents the external interface a host build tool must
// satisfy to drive this engine: the project/session shapes the engine reads,
// and the collaborator seams it calls back into for work only the host tool
// can do (running a build step, resolving a dependency, packing a directory
// artifact). Grounded on the teacher's own external-collaborator seam,
// internal/build.BuildService: one canonical interface per integration
// point, richly doc-commented request/response structs, no network or
// process code of its own.
//
// Internal packages define their own narrower, call-site-specific variants
// of these seams (execstrategy.StepExecutor, projectinput.ArtifactResolver)
// rather than importing hostmodel directly, the same way the teacher's
// internal packages don't import internal/build's BuildService just because
// they share its shape. hostmodel is the one place the whole contract is
// described together, for a host tool implementer to read.
package hostmodel

import "context"

// Coordinate identifies one artifact: a reactor member, a plugin, or an
// external dependency.
type Coordinate struct {
	GroupID    string
	ArtifactID string
	Version    string
	Classifier string
	Type       string
}

// Project is the host tool's view of one reactor member: its coordinates,
// source layout, declared dependencies and plugins, and its effective build
// descriptor. The host tool adapts this into projectinput.Project before
// calling into the fingerprint calculator.
type Project struct {
	GroupID     string
	ArtifactID  string
	Version     string
	PackageType string

	BaseDir string

	MainSourceDir    string
	MainResourceDirs []string
	TestSourceDir    string
	TestResourceDirs []string

	Dependencies []Coordinate
	Plugins      []Coordinate

	Properties map[string]string

	// Model is the host tool's effective build descriptor tree (a parsed
	// POM or equivalent), opaque to hostmodel itself — only the model
	// normalizer interprets its shape.
	Model any
}

// ServerCredentials is one configured remote-repository server the host tool
// knows how to authenticate against, keyed the same way a remote config's
// server ID is.
type ServerCredentials struct {
	ServerID string
	Username string
	Password string
}

// Session is the per-invocation context the host tool supplies once, shared
// across every project's cache decision.
type Session struct {
	Offline         bool
	UpdateSnapshots bool
	Servers         []ServerCredentials
	ProxyURL        string
}

// Step is one build step: a plugin execution at a given lifecycle phase.
type Step struct {
	ID          string
	ArtifactID  string
	ExecutionID string
	Goal        string
	Phase       string
}

// TrackedProperty is one plugin-execution configuration value the host tool
// reports as an input to reconciliation.
type TrackedProperty struct {
	Name    string
	Value   string
	Tracked bool
}

// StepResult is what running one step produced: the tracked property values
// the engine reconciles against on a later cache lookup.
type StepResult struct {
	Properties []TrackedProperty
}

// StepExecutor runs one lifecycle step for real. The host tool's plugin
// execution machinery implements this; the execution strategy calls back
// into it for the clean and post-cached segments, and for the cached
// segment on a fallback.
type StepExecutor interface {
	Execute(ctx context.Context, step Step) (StepResult, error)
}

// ArtifactResolver resolves a non-reactor dependency coordinate to a local
// file path, using the session's configured remote repositories. The host
// tool's own dependency resolver implements this; the input calculator
// calls it only for dependencies outside the current reactor.
type ArtifactResolver interface {
	Resolve(ctx context.Context, coord Coordinate) (path string, err error)
}

// ArchivePacker packs and unpacks the directory-shaped artifacts the engine
// moves between the cache store and a project's working directory (a
// directory-kind attached artifact has no single file to copy, so it travels
// as one archive instead).
type ArchivePacker interface {
	// Pack archives every file under dir matching glob into outFile,
	// reporting hasFiles=false when nothing matched (an empty archive is
	// not written). preserve keeps file permissions.
	Pack(dir, outFile, glob string, preserve bool) (hasFiles bool, err error)

	// Unpack extracts file into destDir, recreating directories as needed.
	Unpack(file, destDir string, preserve bool) error
}
