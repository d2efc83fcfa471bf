// Package cachecontrol is C9: per-project lookup (local then remote), the
// hit/miss decision, and write-back after a successful real build.
package cachecontrol

import (
	"log/slog"
	"time"

	"git.home.luguber.info/inful/reactorcache/internal/buildrecord"
	"git.home.luguber.info/inful/reactorcache/internal/logfields"
	"git.home.luguber.info/inful/reactorcache/internal/metrics"
	"git.home.luguber.info/inful/reactorcache/internal/projectinput"
)

// Status is the outcome of a Lookup.
type Status string

const (
	StatusHit  Status = "HIT"
	StatusMiss Status = "MISS"
)

// Result is the per-project cache decision.
type Result struct {
	Status      Status
	Record      *buildrecord.BuildRecord
	Source      string // "LOCAL" or "REMOTE", empty on MISS
	Fingerprint string
}

// Calculator is the seam onto C6: computing a project's fingerprint.
type Calculator interface {
	Calculate(project *projectinput.Project) (*projectinput.ProjectsInputInfo, error)
}

// Controller implements the per-project cache decision and commit protocol.
type Controller struct {
	calculator Calculator
	store      *buildrecord.Store
	remoteOn   bool
	recorder   metrics.Recorder
	logger     *slog.Logger
}

// New constructs a Controller. remoteEnabled mirrors cacheconfig's
// Remote.Enabled flag: when false, Lookup never consults the remote store
// even if one is wired into store.
func New(calculator Calculator, store *buildrecord.Store, remoteEnabled bool, recorder metrics.Recorder) *Controller {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Controller{
		calculator: calculator,
		store:      store,
		remoteOn:   remoteEnabled,
		recorder:   recorder,
		logger:     slog.Default(),
	}
}

// WithLogger sets a custom logger and returns the controller for chaining.
func (c *Controller) WithLogger(logger *slog.Logger) *Controller {
	c.logger = logger
	return c
}

// Lookup runs the full C9 decision for one project: skip entirely when
// skipCache is set (project or session override), otherwise fingerprint via
// C6, then findLocal, then findRemote when enabled.
func (c *Controller) Lookup(project *projectinput.Project, skipCache bool) (*Result, error) {
	if skipCache {
		return &Result{Status: StatusMiss}, nil
	}

	start := time.Now()
	info, err := c.calculator.Calculate(project)
	c.recorder.ObserveFingerprintDuration(project.Key(), time.Since(start))
	if err != nil {
		return nil, err
	}
	fingerprint := info.Checksum.String()

	coords := buildrecord.Coordinates{GroupID: project.GroupID, ArtifactID: project.ArtifactID, Version: project.Version}

	var record *buildrecord.BuildRecord
	var source string
	if c.remoteOn {
		record, source, err = c.store.Find(coords, fingerprint)
	} else {
		var ok bool
		record, ok, err = c.localOnlyFind(coords, fingerprint)
		if ok {
			source = "LOCAL"
		}
	}
	if err != nil {
		return nil, err
	}

	if record == nil {
		c.recorder.IncCacheMiss(project.Key())
		c.logger.Info("cache miss", logfields.Project(project.Key()), logfields.Fingerprint(fingerprint))
		return &Result{Status: StatusMiss, Fingerprint: fingerprint}, nil
	}

	c.recorder.IncCacheHit(project.Key())
	c.logger.Info("cache hit", logfields.Project(project.Key()), logfields.Fingerprint(fingerprint), logfields.CacheSource(source))
	return &Result{Status: StatusHit, Record: record, Source: source, Fingerprint: fingerprint}, nil
}

func (c *Controller) localOnlyFind(coords buildrecord.Coordinates, fingerprint string) (*buildrecord.BuildRecord, bool, error) {
	// Store.Find always tries remote when one is wired; honoring a
	// disabled Remote.Enabled flag independent of store wiring means
	// going around Find for the local-only case.
	return c.store.FindLocalOnly(coords, fingerprint)
}

// CommitInput is everything a freshly-built project contributes to its new
// BuildRecord.
type CommitInput struct {
	Coordinates           buildrecord.Coordinates
	Fingerprint           string
	Input                 *projectinput.ProjectsInputInfo
	Primary               *buildrecord.ArtifactEntry
	Attached              []buildrecord.ArtifactEntry
	Files                 map[string]string // ArtifactEntry.FileName -> source path
	CompletedExecutions   []buildrecord.CompletedExecution
	HighestCompletedPhase string
	SkipSave              bool
}

// Commit writes a BuildRecord for a project that was just built fresh. If
// SkipSave is set, Commit is a no-op per spec §4.9.
func (c *Controller) Commit(in CommitInput) error {
	if in.SkipSave {
		return nil
	}

	record := &buildrecord.BuildRecord{
		CacheImplVersion:      buildrecord.CacheImplVersion,
		Coordinates:           in.Coordinates,
		Checksum:              in.Fingerprint,
		Input:                 in.Input,
		Primary:               in.Primary,
		Attached:              in.Attached,
		CompletedExecutions:   in.CompletedExecutions,
		HighestCompletedPhase: in.HighestCompletedPhase,
	}

	return c.store.Put(record, in.Files)
}
