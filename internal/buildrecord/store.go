package buildrecord

import (
	"log/slog"
	"os"
	"path/filepath"

	ferrors "git.home.luguber.info/inful/reactorcache/internal/foundation/errors"
	"git.home.luguber.info/inful/reactorcache/internal/hashkit"
	"git.home.luguber.info/inful/reactorcache/internal/hostmodel"
	"git.home.luguber.info/inful/reactorcache/internal/logfields"
)

const (
	buildInfoFileName = "buildinfo.xml"
	indexFileName     = "index.db"
)

// LocalStore is the local half of C7: a content-addressable directory tree
//
//	<root>/<cacheImplVersion>/<groupId>/<artifactId>/<fingerprint>/
//	    buildinfo.xml
//	    <primary-artifact>
//	    <attached-artifacts...>
//
// every file gzip-compressed on disk transparently (the compression is an
// on-disk encoding, not part of the name, so the layout stays bit-exact with
// the remote URL template), with retention of maxLocalBuildsCached records
// per artifactId, oldest by write time evicted on write.
type LocalStore struct {
	root                 string
	maxLocalBuildsCached int
	index                *index
	packer               hostmodel.ArchivePacker // nil unless directory artifacts are in use
	algorithm            hashkit.Algorithm       // nil disables artifact hash compute/verify
	logger               *slog.Logger
}

// NewLocalStore opens (creating if absent) a local store rooted at root.
func NewLocalStore(root string, maxLocalBuildsCached int) (*LocalStore, error) {
	if maxLocalBuildsCached < 1 {
		maxLocalBuildsCached = 1
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryCacheCorrupt, "creating local cache root "+root).Fatal().Build()
	}
	ix, err := openIndex(filepath.Join(root, indexFileName))
	if err != nil {
		return nil, err
	}
	return &LocalStore{
		root:                 root,
		maxLocalBuildsCached: maxLocalBuildsCached,
		index:                ix,
		logger:               slog.Default(),
	}, nil
}

// WithLogger sets a custom logger and returns the store for chaining.
func (s *LocalStore) WithLogger(logger *slog.Logger) *LocalStore {
	s.logger = logger
	return s
}

// WithArchivePacker wires the packer directory-kind ArtifactEntry values are
// packed and unpacked through. Required only when a record carries at least
// one such entry; PutLocal/Materialize return a config error otherwise.
func (s *LocalStore) WithArchivePacker(packer hostmodel.ArchivePacker) *LocalStore {
	s.packer = packer
	return s
}

// WithHashAlgorithm wires the algorithm PutLocal uses to fill in an
// ArtifactEntry's Hash (when not already set by the caller) and Materialize
// uses to verify restored bytes against it. Without one, hashes are neither
// computed nor checked.
func (s *LocalStore) WithHashAlgorithm(algo hashkit.Algorithm) *LocalStore {
	s.algorithm = algo
	return s
}

// Close releases the local index handle.
func (s *LocalStore) Close() error {
	return s.index.close()
}

func (s *LocalStore) recordDir(coords Coordinates, fingerprint string) string {
	return filepath.Join(s.root, CacheImplVersion, coords.GroupID, coords.ArtifactID, fingerprint)
}

// FindLocal looks up a record by coordinates and fingerprint. A missing
// directory is not an error: it reports CacheMiss semantics via ok=false.
func (s *LocalStore) FindLocal(coords Coordinates, fingerprint string) (*BuildRecord, bool, error) {
	dir := s.recordDir(coords, fingerprint)
	data, err := readGzipFile(filepath.Join(dir, buildInfoFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, ferrors.CacheCorruptError("reading buildinfo for " + coords.Key() + "@" + fingerprint).Build()
	}

	record, err := Unmarshal(data)
	if err != nil {
		return nil, false, ferrors.CacheCorruptError("parsing buildinfo for " + coords.Key() + "@" + fingerprint).Build()
	}
	record.Checksum = fingerprint
	return record, true, nil
}

// PutLocal writes a record and its artifact files atomically (write to
// <name>.tmp, then rename) and applies retention for the record's artifactId.
// Artifact files are written, and their Hash filled in when a hash algorithm
// is configured and the entry doesn't already carry one, before buildinfo.xml
// is written, so the persisted record always reflects the bytes on disk.
//
// files maps each ArtifactEntry.FileName to the source path to copy its
// content from.
func (s *LocalStore) PutLocal(record *BuildRecord, files map[string]string) error {
	dir := s.recordDir(record.Coordinates, record.Checksum)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryCacheCorrupt, "creating record directory "+dir).Build()
	}

	if record.Primary != nil {
		if err := s.putArtifactEntry(dir, record.Primary, files); err != nil {
			return err
		}
	}
	for i := range record.Attached {
		if err := s.putArtifactEntry(dir, &record.Attached[i], files); err != nil {
			return err
		}
	}

	data, err := Marshal(record)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryCacheCorrupt, "serializing buildinfo").Build()
	}
	if err := writeGzipFileAtomic(filepath.Join(dir, buildInfoFileName), data); err != nil {
		return err
	}

	if err := s.index.record(record.Coordinates, record.Checksum, dir); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryCacheCorrupt, "updating local cache index").Build()
	}

	s.evict(record.Coordinates)
	return nil
}

// Coordinates returns every project currently tracked in the local index,
// for GC tooling that needs to sweep every project rather than one at a time.
func (s *LocalStore) Coordinates() ([]Coordinates, error) {
	return s.index.listCoordinates()
}

// Evict forces a retention pass for one project's cached builds, removing
// entries beyond maxLocalBuildsCached. PutLocal already does this on every
// write; this is for an external GC trigger run independently of a build.
func (s *LocalStore) Evict(coords Coordinates) {
	s.evict(coords)
}

func (s *LocalStore) evict(coords Coordinates) {
	stale, err := s.index.evictionCandidates(coords, s.maxLocalBuildsCached)
	if err != nil {
		s.logger.Warn("eviction candidate scan failed", logfields.Artifact(coords.ArtifactID), logfields.KeyError, err)
		return
	}
	for _, dir := range stale {
		if err := os.RemoveAll(dir); err != nil {
			s.logger.Warn("evicting stale local build failed", logfields.Path(dir), logfields.KeyError, err)
			continue
		}
		if err := s.index.forget(coords, dir); err != nil {
			s.logger.Warn("forgetting evicted build in index failed", logfields.Path(dir), logfields.KeyError, err)
		}
	}
}

// Materialize copies one artifact entry from the record's local directory to
// destPath, decompressing it, writing through a temp file then renaming. A
// directory entry is unpacked into destPath instead of written as one file.
// When entry.Hash is set and a hash algorithm is configured, the restored
// bytes are verified against it before being written out; a mismatch
// surfaces CacheCorrupt rather than silently restoring a corrupt copy.
func (s *LocalStore) Materialize(record *BuildRecord, entry ArtifactEntry, destPath string) error {
	dir := s.recordDir(record.Coordinates, record.Checksum)
	src := filepath.Join(dir, entry.FileName)

	if entry.Directory {
		return s.materializeDirectoryArtifact(src, destPath, record.Coordinates.Key(), entry)
	}

	data, err := readGzipFile(src)
	if err != nil {
		return ferrors.RestoreError("restoring " + entry.FileName + " for " + record.Coordinates.Key()).Build()
	}
	if err := s.verifyHash(entry, data); err != nil {
		return err
	}

	if err := writeDestAtomic(destPath, data); err != nil {
		return ferrors.RestoreError("writing restored artifact " + destPath).Build()
	}
	return nil
}

func (s *LocalStore) verifyHash(entry ArtifactEntry, data []byte) error {
	if entry.Hash == "" || s.algorithm == nil {
		return nil
	}
	if got := s.algorithm.Hash(data); got != entry.Hash {
		return ferrors.CacheCorruptError("artifact hash mismatch restoring " + entry.FileName).Build()
	}
	return nil
}

// putArtifactEntry writes one artifact's content into dir and, when a hash
// algorithm is configured and the entry doesn't already carry a Hash, fills
// it in from the bytes actually written.
func (s *LocalStore) putArtifactEntry(dir string, entry *ArtifactEntry, files map[string]string) error {
	src, ok := files[entry.FileName]
	if !ok {
		return nil
	}
	dest := filepath.Join(dir, entry.FileName)

	if entry.Directory {
		hash, err := s.putDirectoryArtifact(src, dest)
		if err != nil {
			return err
		}
		if entry.Hash == "" {
			entry.Hash = hash
		}
		return nil
	}

	data, err := readLocalArtifact(src)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryCacheCorrupt, "reading artifact "+src).Build()
	}
	if entry.Hash == "" && s.algorithm != nil {
		entry.Hash = s.algorithm.Hash(data)
	}
	return writeGzipFileAtomic(dest, data)
}

// putDirectoryArtifact packs srcDir into a temporary zip, then gzips that
// archive into dest using the same atomic-write helper a regular file uses,
// returning the packed archive's hash when a hash algorithm is configured.
func (s *LocalStore) putDirectoryArtifact(srcDir, dest string) (hashkit.Fingerprint, error) {
	if s.packer == nil {
		return "", ferrors.ConfigError("directory artifact requires an ArchivePacker, none configured").Build()
	}

	tmpZip := dest + ".pack.tmp"
	defer func() { _ = os.Remove(tmpZip) }()

	if _, err := s.packer.Pack(srcDir, tmpZip, "**", true); err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryCacheCorrupt, "packing directory artifact "+srcDir).Build()
	}

	data, err := readLocalArtifact(tmpZip)
	if err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryCacheCorrupt, "reading packed archive "+tmpZip).Build()
	}

	var hash hashkit.Fingerprint
	if s.algorithm != nil {
		hash = s.algorithm.Hash(data)
	}
	return hash, writeGzipFileAtomic(dest, data)
}

// materializeDirectoryArtifact gunzips src into a temporary zip, verifies it
// against entry.Hash when configured, then unpacks it into destDir.
func (s *LocalStore) materializeDirectoryArtifact(src, destDir, coordKey string, entry ArtifactEntry) error {
	if s.packer == nil {
		return ferrors.ConfigError("directory artifact requires an ArchivePacker, none configured").Build()
	}

	data, err := readGzipFile(src)
	if err != nil {
		return ferrors.RestoreError("restoring directory artifact for " + coordKey).Build()
	}
	if err := s.verifyHash(entry, data); err != nil {
		return err
	}

	tmpZip := filepath.Join(os.TempDir(), "reactorcache-"+filepath.Base(destDir)+".zip")
	if err := writeDestAtomic(tmpZip, data); err != nil {
		return ferrors.RestoreError("staging packed archive for " + coordKey).Build()
	}
	defer func() { _ = os.Remove(tmpZip) }()

	if err := s.packer.Unpack(tmpZip, destDir, true); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRestore, "unpacking directory artifact into "+destDir).Build()
	}
	return nil
}

func readGzipFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(path) // #nosec G304 - path is built from sanitized fingerprint/artifact segments
	if err != nil {
		return nil, err
	}
	return gunzipBytes(raw)
}

func writeGzipFileAtomic(path string, data []byte) error {
	compressed, err := gzipBytes(data)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryCacheCorrupt, "compressing "+path).Build()
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, compressed, 0o600); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryCacheCorrupt, "writing temp file "+tmp).Build()
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return ferrors.WrapError(err, ferrors.CategoryCacheCorrupt, "renaming into place "+path).Build()
	}
	return nil
}
