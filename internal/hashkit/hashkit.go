// Package hashkit provides the pluggable hash algorithms and streaming checksum
// accumulators used to compute fingerprints over project inputs.
package hashkit

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// mmapSuffix selects the memory-mapped file-hashing path for a base algorithm
// name, e.g. "SHA-256-MM".
const mmapSuffix = "-MM"

// Fingerprint is a fixed-width byte sequence rendered as lowercase hex.
type Fingerprint string

// String returns the fingerprint's hex form.
func (f Fingerprint) String() string { return string(f) }

// Algorithm computes fingerprints over byte slices and files.
type Algorithm interface {
	// Name returns the registered algorithm name.
	Name() string
	// Hash returns the fingerprint of a byte slice.
	Hash(data []byte) Fingerprint
	// HashFile returns the fingerprint of a file's full contents.
	HashFile(path string) (Fingerprint, error)
	// NewHash returns a streaming hash.Hash for this algorithm.
	NewHash() hash.Hash
}

// UnknownAlgorithmError is returned when a name has no registered Algorithm.
type UnknownAlgorithmError struct {
	Name string
}

func (e *UnknownAlgorithmError) Error() string {
	return fmt.Sprintf("hashkit: unknown algorithm %q", e.Name)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Algorithm{}
)

func register(a Algorithm) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[a.Name()] = a
}

func init() {
	register(sha256Algorithm{})
	register(sha512Algorithm{})
	register(xxh64Algorithm{})
}

// Algorithms returns the names of every registered algorithm.
func Algorithms() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// AlgorithmByName looks up a registered Algorithm, or returns UnknownAlgorithmError.
// A name ending in "-MM" resolves to the base algorithm's memory-mapped file
// hashing path; byte-slice hashing is identical to the base algorithm.
func AlgorithmByName(name string) (Algorithm, error) {
	base := name
	mm := false
	if strings.HasSuffix(name, mmapSuffix) {
		base = strings.TrimSuffix(name, mmapSuffix)
		mm = true
	}

	registryMu.RLock()
	a, ok := registry[base]
	registryMu.RUnlock()
	if !ok {
		return nil, &UnknownAlgorithmError{Name: name}
	}
	if mm {
		return mmapAlgorithm{Algorithm: a}, nil
	}
	return a, nil
}

// mmapAlgorithm wraps an Algorithm so HashFile reads through mmap instead of
// a full buffered read.
type mmapAlgorithm struct {
	Algorithm
}

func (m mmapAlgorithm) Name() string { return m.Algorithm.Name() + mmapSuffix }

func (m mmapAlgorithm) HashFile(path string) (Fingerprint, error) {
	return hashFileMemoryMapped(m.Algorithm, path)
}

// Register adds or replaces an Algorithm under its own name. Intended for host
// processes that want to plug in a custom non-cryptographic algorithm.
func Register(a Algorithm) {
	register(a)
}

// readFile reads a path in full; shared by the cryptographic algorithms.
func readFile(path string) ([]byte, error) {
	// #nosec G304 - path is supplied by the caller's own project input walk
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

type sha256Algorithm struct{}

func (sha256Algorithm) Name() string { return "SHA-256" }
func (sha256Algorithm) Hash(data []byte) Fingerprint {
	sum := sha256.Sum256(data)
	return Fingerprint(hex.EncodeToString(sum[:]))
}
func (a sha256Algorithm) HashFile(path string) (Fingerprint, error) {
	data, err := readFile(path)
	if err != nil {
		return "", err
	}
	return a.Hash(data), nil
}
func (sha256Algorithm) NewHash() hash.Hash { return sha256.New() }

type sha512Algorithm struct{}

func (sha512Algorithm) Name() string { return "SHA-512" }
func (sha512Algorithm) Hash(data []byte) Fingerprint {
	sum := sha512.Sum512(data)
	return Fingerprint(hex.EncodeToString(sum[:]))
}
func (a sha512Algorithm) HashFile(path string) (Fingerprint, error) {
	data, err := readFile(path)
	if err != nil {
		return "", err
	}
	return a.Hash(data), nil
}
func (sha512Algorithm) NewHash() hash.Hash { return sha512.New() }

// xxh64Algorithm is the non-cryptographic algorithm option: faster, unsuitable
// for adversarial inputs but fine for build-cache fingerprints.
type xxh64Algorithm struct{}

func (xxh64Algorithm) Name() string { return "XX-64" }
func (xxh64Algorithm) Hash(data []byte) Fingerprint {
	sum := xxhash.Sum64(data)
	return Fingerprint(fmt.Sprintf("%016x", sum))
}
func (a xxh64Algorithm) HashFile(path string) (Fingerprint, error) {
	data, err := readFile(path)
	if err != nil {
		return "", err
	}
	return a.Hash(data), nil
}
func (xxh64Algorithm) NewHash() hash.Hash { return xxhash.New() }
