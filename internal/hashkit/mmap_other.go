//go:build !unix

package hashkit

// hashFileMemoryMapped falls back to a full read on platforms without a
// cheap mmap path; the "-MM" suffix is an optimization hint, not a contract.
func hashFileMemoryMapped(algo Algorithm, path string) (Fingerprint, error) {
	return algo.HashFile(path)
}
