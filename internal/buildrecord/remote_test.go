package buildrecord

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/reactorcache/internal/foundation/errors"
	"git.home.luguber.info/inful/reactorcache/internal/hashkit"
)

type fakeTransport struct {
	mu      sync.Mutex
	objects map[string][]byte
	getErr  error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{objects: map[string][]byte{}}
}

func (f *fakeTransport) Get(url string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[url]
	if !ok {
		return nil, nil
	}
	return data, nil
}

func (f *fakeTransport) Put(url string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[url] = data
	return nil
}

func (f *fakeTransport) Head(url string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[url]
	return ok, nil
}

func TestRemoteStore_PutThenFindRemote_RoundTrips(t *testing.T) {
	transport := newFakeTransport()
	store := NewRemoteStore(transport, "https://cache.example.com")
	record := sampleRecord()
	record.Final = false

	require.NoError(t, store.PutRemote(record, nil))

	found, ok, err := store.FindRemote(record.Coordinates, record.Checksum)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, record.Coordinates, found.Coordinates)
}

func TestRemoteStore_FindRemote_AbsentIsNotAnError(t *testing.T) {
	transport := newFakeTransport()
	store := NewRemoteStore(transport, "https://cache.example.com")

	record, ok, err := store.FindRemote(Coordinates{GroupID: "g", ArtifactID: "a"}, "nope")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, record)
}

func TestRemoteStore_PutRemote_RefusesToOverwriteFinal(t *testing.T) {
	transport := newFakeTransport()
	store := NewRemoteStore(transport, "https://cache.example.com")

	final := sampleRecord()
	final.Final = true
	final.HighestCompletedPhase = "original"
	require.NoError(t, store.PutRemote(final, nil))

	attempt := sampleRecord()
	attempt.HighestCompletedPhase = "overwritten"
	require.NoError(t, store.PutRemote(attempt, nil))

	found, ok, err := store.FindRemote(final.Coordinates, final.Checksum)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "original", found.HighestCompletedPhase, "a final remote record must never be overwritten")
}

func TestRemoteStore_MaterializeRemote_WritesDecompressedArtifact(t *testing.T) {
	transport := newFakeTransport()
	store := NewRemoteStore(transport, "https://cache.example.com")
	record := sampleRecord()

	srcDir := t.TempDir()
	jarPath := filepath.Join(srcDir, "demo-1.0.0.jar")
	require.NoError(t, os.WriteFile(jarPath, []byte("jar-bytes"), 0o600))

	require.NoError(t, store.PutRemote(record, map[string]string{"demo-1.0.0.jar": jarPath}))

	dest := filepath.Join(t.TempDir(), "restored.jar")
	require.NoError(t, store.MaterializeRemote(record, *record.Primary, dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "jar-bytes", string(data))
}

func TestRemoteStore_MaterializeRemote_CorruptArtifactFailsHashVerification(t *testing.T) {
	algo, err := hashkit.AlgorithmByName("SHA-256")
	require.NoError(t, err)
	transport := newFakeTransport()
	store := NewRemoteStore(transport, "https://cache.example.com").WithHashAlgorithm(algo)
	record := sampleRecord()

	srcDir := t.TempDir()
	jarPath := filepath.Join(srcDir, "demo-1.0.0.jar")
	require.NoError(t, os.WriteFile(jarPath, []byte("jar-bytes"), 0o600))
	require.NoError(t, store.PutRemote(record, map[string]string{"demo-1.0.0.jar": jarPath}))
	assert.Equal(t, algo.Hash([]byte("jar-bytes")), record.Primary.Hash)

	tampered, err := gzipBytes([]byte("tampered-bytes"))
	require.NoError(t, err)
	require.NoError(t, transport.Put(store.url(record.Coordinates, record.Checksum, record.Primary.FileName), tampered))

	dest := filepath.Join(t.TempDir(), "restored.jar")
	err = store.MaterializeRemote(record, *record.Primary, dest)
	require.Error(t, err)
	var classified *ferrors.ClassifiedError
	require.ErrorAs(t, err, &classified)
	assert.Equal(t, ferrors.CategoryCacheCorrupt, classified.Category())
}

func TestStore_Find_PrefersLocalOverRemote(t *testing.T) {
	local, err := NewLocalStore(t.TempDir(), 3)
	require.NoError(t, err)
	t.Cleanup(func() { _ = local.Close() })
	transport := newFakeTransport()
	remote := NewRemoteStore(transport, "https://cache.example.com")
	store := NewStore(local, remote, true, false, false)

	record := sampleRecord()
	require.NoError(t, store.Put(record, nil))

	_, source, err := store.Find(record.Coordinates, record.Checksum)
	require.NoError(t, err)
	assert.Equal(t, "LOCAL", source)
}

func TestStore_Materialize_LazyRestoreDefersUntilWait(t *testing.T) {
	local, err := NewLocalStore(t.TempDir(), 3)
	require.NoError(t, err)
	t.Cleanup(func() { _ = local.Close() })
	transport := newFakeTransport()
	remote := NewRemoteStore(transport, "https://cache.example.com")
	store := NewStore(local, remote, true, false, true)

	record := sampleRecord()
	srcDir := t.TempDir()
	jarPath := filepath.Join(srcDir, "demo-1.0.0.jar")
	require.NoError(t, os.WriteFile(jarPath, []byte("jar-bytes"), 0o600))
	require.NoError(t, store.Put(record, map[string]string{"demo-1.0.0.jar": jarPath}))

	// Remove the local copy so only a remote-sourced Find returns REMOTE.
	require.NoError(t, os.RemoveAll(local.recordDir(record.Coordinates, record.Checksum)))

	found, source, err := store.Find(record.Coordinates, record.Checksum)
	require.NoError(t, err)
	require.Equal(t, "REMOTE", source)

	dest := filepath.Join(t.TempDir(), "restored.jar")
	materialized := store.Materialize(found, source, *found.Primary, dest)

	if _, statErr := os.Stat(dest); statErr == nil {
		t.Fatal("lazy restore must not write before Wait() is called")
	}

	require.NoError(t, materialized.Wait())
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "jar-bytes", string(data))
}

func TestMaterialized_Cancel_SurfacesCacheCancelled(t *testing.T) {
	m := &Materialized{wait: func() error { return nil }}
	m.Cancel()

	err := m.Wait()
	require.Error(t, err)
	var classified *ferrors.ClassifiedError
	require.ErrorAs(t, err, &classified)
	assert.Equal(t, ferrors.CategoryCancelled, classified.Category())
}
