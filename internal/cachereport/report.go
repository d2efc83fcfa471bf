// Package cachereport is C11: the per-session cache report, listing each
// project's cache outcome, plus the baseline-diff lookup C5 uses when
// baselineCacheUrl is configured.
package cachereport

import (
	"sync"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/reactorcache/internal/projectinput"
)

// Source is where a project's build came from, mirroring cachecontrol's
// Result.Source ("LOCAL" or "REMOTE") plus the "never cached at all" outcome.
type Source string

const (
	SourceLocal  Source = "LOCAL"
	SourceRemote Source = "REMOTE"
	SourceBuilt  Source = "BUILT"
)

// ProjectReport is one project's cache outcome for the session.
type ProjectReport struct {
	GroupID     string
	ArtifactID  string
	Fingerprint string
	Source      Source
	URL         string // populated only when Source == SourceRemote

	// Items is the project's full ordered DigestItem list, carried so a
	// later DiffAgainstBaseline call can classify each item MATCHED or OUT
	// OF DATE rather than only comparing the two aggregate fingerprints.
	// Optional: a report built without it still round-trips, just with no
	// per-item diff available.
	Items []projectinput.DigestItem
}

// Report accumulates ProjectReport entries across a build session. Safe for
// concurrent use: the engine is re-entrant per project, and reports arrive
// from whichever goroutine finished that project's decision.
type Report struct {
	mu        sync.Mutex
	SessionID string
	projects  []ProjectReport
}

// New returns an empty Report stamped with a fresh session ID, the same way
// the teacher tags a job run for correlation across its own log lines.
func New() *Report {
	return &Report{SessionID: uuid.New().String()}
}

// Add records one project's outcome. Safe to call concurrently.
func (r *Report) Add(entry ProjectReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects = append(r.projects, entry)
}

// Projects returns a snapshot of every recorded entry, in insertion order.
func (r *Report) Projects() []ProjectReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ProjectReport, len(r.projects))
	copy(out, r.projects)
	return out
}

// Find returns the entry for a given coordinate key ("groupId:artifactId"),
// if one was recorded this session.
func (r *Report) Find(groupID, artifactID string) (ProjectReport, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.projects {
		if p.GroupID == groupID && p.ArtifactID == artifactID {
			return p, true
		}
	}
	return ProjectReport{}, false
}
