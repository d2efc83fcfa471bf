package buildrecord

import (
	"log/slog"
	"sync"

	ferrors "git.home.luguber.info/inful/reactorcache/internal/foundation/errors"
	"git.home.luguber.info/inful/reactorcache/internal/hostmodel"
)

// Store composes a LocalStore with an optional RemoteStore, implementing the
// lookup/write-back/materialize operations C9 needs without itself deciding
// cache-hit policy.
type Store struct {
	local        *LocalStore
	remote       *RemoteStore // nil when remote is disabled
	saveToRemote bool
	saveFinal    bool
	lazyRestore  bool
	logger       *slog.Logger
}

// NewStore composes a local store with an optional remote store (nil when
// remote is disabled) under the given write-back policy flags.
func NewStore(local *LocalStore, remote *RemoteStore, saveToRemote, saveFinal, lazyRestore bool) *Store {
	return &Store{
		local:        local,
		remote:       remote,
		saveToRemote: saveToRemote,
		saveFinal:    saveFinal,
		lazyRestore:  lazyRestore,
		logger:       slog.Default(),
	}
}

// WithLogger sets a custom logger and returns the store for chaining.
func (s *Store) WithLogger(logger *slog.Logger) *Store {
	s.logger = logger
	return s
}

// WithArchivePacker wires the packer directory-kind ArtifactEntry values
// need, forwarded to the local store (directory artifacts are local-only;
// see RemoteStore.PutRemote/MaterializeRemote).
func (s *Store) WithArchivePacker(packer hostmodel.ArchivePacker) *Store {
	s.local.WithArchivePacker(packer)
	return s
}

// Find resolves a build record: local first, then remote if local misses and
// remote is configured. A nil record with a nil error means a clean cache miss.
func (s *Store) Find(coords Coordinates, fingerprint string) (record *BuildRecord, source string, err error) {
	if r, ok, err := s.local.FindLocal(coords, fingerprint); err != nil {
		return nil, "", err
	} else if ok {
		return r, "LOCAL", nil
	}

	if s.remote == nil {
		return nil, "", nil
	}

	r, ok, err := s.remote.FindRemote(coords, fingerprint)
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, "", nil
	}
	return r, "REMOTE", nil
}

// FindLocalOnly looks up a record in the local store without ever
// consulting the remote store, for callers enforcing a disabled
// Remote.Enabled flag independently of whether a remote store is wired in.
func (s *Store) FindLocalOnly(coords Coordinates, fingerprint string) (*BuildRecord, bool, error) {
	return s.local.FindLocal(coords, fingerprint)
}

// Put writes a freshly-built record to the local store, then to the remote
// store when saveToRemote is configured. The local record is always marked
// non-final; only the remote copy can carry Final, and only when saveFinal is
// set.
func (s *Store) Put(record *BuildRecord, files map[string]string) error {
	local := *record
	local.Final = false
	if err := s.local.PutLocal(&local, files); err != nil {
		return err
	}

	if s.remote == nil || !s.saveToRemote {
		return nil
	}

	remote := *record
	remote.Final = s.saveFinal
	if err := s.remote.PutRemote(&remote, files); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryCacheTransport, "writing remote build record").Build()
	}
	return nil
}

// Materialized is a lazily-resolved artifact restore: either already
// complete, or backed by a future that downloads on first Wait().
type Materialized struct {
	once sync.Once
	wait func() error
	err  error
}

// Wait blocks until the artifact has been written to its destination,
// returning any restore error exactly once computed.
func (m *Materialized) Wait() error {
	m.once.Do(func() { m.err = m.wait() })
	return m.err
}

// Materialize copies one artifact entry to destPath. When the record came
// from the local store, or lazyRestore is not configured, this happens
// synchronously and the returned Materialized is already resolved. When the
// record is remote-sourced and lazyRestore is configured, the download is
// deferred to the first Wait() call.
func (s *Store) Materialize(record *BuildRecord, source string, entry ArtifactEntry, destPath string) *Materialized {
	if source == "LOCAL" || !s.lazyRestore || s.remote == nil {
		err := s.materializeNow(record, source, entry, destPath)
		return &Materialized{wait: func() error { return err }}
	}

	return &Materialized{wait: func() error {
		return s.remote.MaterializeRemote(record, entry, destPath)
	}}
}

func (s *Store) materializeNow(record *BuildRecord, source string, entry ArtifactEntry, destPath string) error {
	if source == "REMOTE" {
		if s.remote == nil {
			return ferrors.RestoreError("remote artifact requested but no remote store is configured").Build()
		}
		return s.remote.MaterializeRemote(record, entry, destPath)
	}
	return s.local.Materialize(record, entry, destPath)
}

// Cancel marks an in-flight lazy restore as cancelled; any
// subsequent Wait() surfaces CacheCancelled instead of attempting the
// download. Call before the first Wait() to take effect.
func (m *Materialized) Cancel() {
	m.once.Do(func() {
		m.err = ferrors.CancelledError("lazy restore cancelled before materialization").Build()
	})
}
