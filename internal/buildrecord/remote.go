package buildrecord

import (
	"fmt"

	ferrors "git.home.luguber.info/inful/reactorcache/internal/foundation/errors"
	"git.home.luguber.info/inful/reactorcache/internal/hashkit"
)

// RemoteTransport is the narrow seam C7 needs from C8: byte-level GET/PUT/HEAD
// keyed by the bit-exact remote URL template
// "<baseUrl>/<cacheImplVersion>/<groupId>/<artifactId>/<fingerprint>/<filename>".
type RemoteTransport interface {
	Get(url string) ([]byte, error)
	Put(url string, data []byte) error
	Head(url string) (bool, error)
}

// RemoteStore is the remote half of C7, built over a RemoteTransport and a
// base URL. It never decides failFast policy itself: that is the
// transport's job per spec §4.8, so a transport error here is propagated
// unchanged.
type RemoteStore struct {
	transport RemoteTransport
	baseURL   string
	algorithm hashkit.Algorithm // nil disables artifact hash compute/verify
}

// NewRemoteStore constructs a RemoteStore over an already-configured
// transport.
func NewRemoteStore(transport RemoteTransport, baseURL string) *RemoteStore {
	return &RemoteStore{transport: transport, baseURL: baseURL}
}

// WithHashAlgorithm wires the algorithm PutRemote uses to fill in an
// ArtifactEntry's Hash (when not already set by the caller) and
// MaterializeRemote uses to verify restored bytes against it. Without one,
// hashes are neither computed nor checked.
func (s *RemoteStore) WithHashAlgorithm(algo hashkit.Algorithm) *RemoteStore {
	s.algorithm = algo
	return s
}

func (s *RemoteStore) verifyHash(entry ArtifactEntry, data []byte) error {
	if entry.Hash == "" || s.algorithm == nil {
		return nil
	}
	if got := s.algorithm.Hash(data); got != entry.Hash {
		return ferrors.CacheCorruptError("artifact hash mismatch restoring " + entry.FileName).Build()
	}
	return nil
}

func (s *RemoteStore) url(coords Coordinates, fingerprint, filename string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s/%s", s.baseURL, CacheImplVersion, coords.GroupID, coords.ArtifactID, fingerprint, filename)
}

// FindRemote fetches buildinfo.xml from the remote store and parses it.
// Absence (transport returns ok=false from Head, or Get reports not-found) is
// reported as ok=false, not an error.
func (s *RemoteStore) FindRemote(coords Coordinates, fingerprint string) (*BuildRecord, bool, error) {
	exists, err := s.transport.Head(s.url(coords, fingerprint, buildInfoFileName))
	if err != nil {
		return nil, false, err
	}
	if !exists {
		return nil, false, nil
	}

	data, err := s.transport.Get(s.url(coords, fingerprint, buildInfoFileName))
	if err != nil {
		return nil, false, err
	}
	if len(data) == 0 {
		return nil, false, nil
	}

	decompressed, err := gunzipBytes(data)
	if err != nil {
		return nil, false, ferrors.CacheCorruptError("decompressing remote buildinfo for " + coords.Key() + "@" + fingerprint).Build()
	}

	record, err := Unmarshal(decompressed)
	if err != nil {
		return nil, false, ferrors.CacheCorruptError("parsing remote buildinfo for " + coords.Key() + "@" + fingerprint).Build()
	}
	record.Checksum = fingerprint
	return record, true, nil
}

// PutRemote uploads a record and its artifact files. If an existing remote
// record has final=true, the upload is skipped entirely per spec §4.7.
// Artifact Hash fields are filled in (when a hash algorithm is configured and
// the entry doesn't already carry one) before buildinfo.xml is marshaled, so
// the uploaded record reflects the bytes actually uploaded.
func (s *RemoteStore) PutRemote(record *BuildRecord, files map[string]string) error {
	existing, ok, err := s.FindRemote(record.Coordinates, record.Checksum)
	if err != nil {
		return err
	}
	if ok && existing.Final {
		return nil
	}

	if record.Primary != nil {
		if err := s.putArtifactEntry(record, record.Primary, files); err != nil {
			return err
		}
	}
	for i := range record.Attached {
		if err := s.putArtifactEntry(record, &record.Attached[i], files); err != nil {
			return err
		}
	}

	data, err := Marshal(record)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryCacheCorrupt, "serializing buildinfo for remote upload").Build()
	}
	compressed, err := gzipBytes(data)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryCacheCorrupt, "compressing buildinfo for remote upload").Build()
	}
	return s.transport.Put(s.url(record.Coordinates, record.Checksum, buildInfoFileName), compressed)
}

func (s *RemoteStore) putArtifactEntry(record *BuildRecord, entry *ArtifactEntry, files map[string]string) error {
	path, ok := files[entry.FileName]
	if !ok {
		return nil
	}
	if entry.Directory {
		return ferrors.ConfigError("directory artifacts are local-only, cannot upload " + entry.FileName + " to remote").Build()
	}
	raw, readErr := readLocalArtifact(path)
	if readErr != nil {
		return ferrors.WrapError(readErr, ferrors.CategoryCacheCorrupt, "reading artifact for remote upload "+path).Build()
	}
	if entry.Hash == "" && s.algorithm != nil {
		entry.Hash = s.algorithm.Hash(raw)
	}
	gz, gzErr := gzipBytes(raw)
	if gzErr != nil {
		return ferrors.WrapError(gzErr, ferrors.CategoryCacheCorrupt, "compressing artifact for remote upload "+path).Build()
	}
	return s.transport.Put(s.url(record.Coordinates, record.Checksum, entry.FileName), gz)
}

// MaterializeRemote downloads one artifact entry to destPath, decompressing
// it, verifying it against entry.Hash when configured, and writing
// atomically. Used by the non-lazy restore path; lazy restore wraps this in
// a cancellable future in Store.Materialize.
func (s *RemoteStore) MaterializeRemote(record *BuildRecord, entry ArtifactEntry, destPath string) error {
	if entry.Directory {
		return ferrors.ConfigError("directory artifacts are local-only, cannot restore " + entry.FileName + " from remote").Build()
	}
	data, err := s.transport.Get(s.url(record.Coordinates, record.Checksum, entry.FileName))
	if err != nil {
		return err
	}
	raw, err := gunzipBytes(data)
	if err != nil {
		return ferrors.RestoreError("decompressing remote artifact " + entry.FileName).Build()
	}
	if err := s.verifyHash(entry, raw); err != nil {
		return err
	}
	return writeDestAtomic(destPath, raw)
}
