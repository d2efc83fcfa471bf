// Package buildrecord is the persisted representation of a cached build: its
// input fingerprint, artifact index, and completed-step parameter snapshots,
// held in a local content-addressable layout with an optional remote mirror.
package buildrecord

import (
	"git.home.luguber.info/inful/reactorcache/internal/hashkit"
	"git.home.luguber.info/inful/reactorcache/internal/projectinput"
)

// CacheImplVersion is embedded in every local and remote path so that an
// incompatible future layout never collides with this one.
const CacheImplVersion = "v1"

// Coordinates identifies the reactor project a record belongs to.
type Coordinates struct {
	GroupID    string
	ArtifactID string
	Version    string
}

// Key returns the directory/URL segment pair this record is filed under.
func (c Coordinates) Key() string {
	return c.GroupID + "/" + c.ArtifactID
}

// ArtifactRole distinguishes the part an artifact plays in a project's
// output, mirroring how a host build tool classifies its own produced files.
type ArtifactRole string

const (
	RolePrimary         ArtifactRole = "primary"
	RoleGeneratedSource ArtifactRole = "generatedSource"
	RoleExtraOutput     ArtifactRole = "extraOutput"
)

// ArtifactEntry is one file (or, when Directory is set, one directory)
// attached to a build record, named relative to the record's directory. A
// directory entry has no single file to copy: it travels as a packed
// archive instead, via the store's configured ArchivePacker.
//
// Hash is the fingerprint of the artifact's content (the packed archive's
// content for a directory entry). When the store has a hash algorithm
// configured, it computes a blank Hash at write time and verifies a set Hash
// against the restored bytes on Materialize, so a corrupt local or remote
// copy is caught as CacheCorrupt rather than silently restored; without one,
// Hash is neither computed nor checked.
type ArtifactEntry struct {
	Role       ArtifactRole
	Classifier string
	Extension  string
	FileName   string
	Hash       hashkit.Fingerprint
	Directory  bool
}

// TrackedProperty is one property snapshot captured for a completed
// execution, used later for reconciliation.
type TrackedProperty struct {
	Name    string
	Value   string
	Tracked bool
}

// CompletedExecution snapshots the tracked properties observed when a build
// step last ran, so a later build can decide whether the step may be skipped.
type CompletedExecution struct {
	StepID     string
	Properties []TrackedProperty
}

// BuildRecord is the full persisted state for one project at one fingerprint.
type BuildRecord struct {
	CacheImplVersion      string
	Coordinates           Coordinates
	Checksum              string // lowercase hex fingerprint, the directory key
	Input                 *projectinput.ProjectsInputInfo
	Primary               *ArtifactEntry
	Attached              []ArtifactEntry
	CompletedExecutions   []CompletedExecution
	HighestCompletedPhase string
	Final                 bool // remote-only: once true, must never be overwritten
}

// Artifacts returns the primary entry (if any) followed by the attached
// entries, the order files are materialized in.
func (r *BuildRecord) Artifacts() []ArtifactEntry {
	var all []ArtifactEntry
	if r.Primary != nil {
		all = append(all, *r.Primary)
	}
	all = append(all, r.Attached...)
	return all
}
