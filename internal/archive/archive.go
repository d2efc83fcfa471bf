// Package archive is the default ArchivePacker: a directory bundled into a
// single zip file, the container format itself on stdlib archive/zip (no
// pack example carries a better-fit container library for this), the
// deflate compressor swapped for klauspost/compress/flate's faster
// implementation the same way buildrecord swaps in klauspost's gzip.
package archive

import (
	"archive/zip"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/flate"

	ferrors "git.home.luguber.info/inful/reactorcache/internal/foundation/errors"
)

// Packer is the default hostmodel.ArchivePacker implementation.
type Packer struct{}

// New returns a Packer.
func New() *Packer {
	return &Packer{}
}

func registerFastDeflate(w *zip.Writer) {
	w.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.DefaultCompression)
	})
}

// Pack archives every file under dir matching glob into outFile. An empty
// match set is not an error: hasFiles reports false and no file is written.
func (p *Packer) Pack(dir, outFile, glob string, preserve bool) (bool, error) {
	var matches []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		// filepath.Match treats "/" literally, so it cannot express "**"
		// recursing through subdirectories the way shell globs do; "**" and
		// the empty glob are handled as "everything" directly, and any
		// other pattern matches against the entry's base name only.
		if glob == "" || glob == "**" {
			matches = append(matches, rel)
			return nil
		}
		ok, err := filepath.Match(glob, filepath.Base(rel))
		if err != nil {
			return err
		}
		if ok {
			matches = append(matches, rel)
		}
		return nil
	})
	if err != nil {
		return false, ferrors.WrapError(err, ferrors.CategoryFileSystem, "scanning "+dir+" for archiving").Build()
	}
	if len(matches) == 0 {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(outFile), 0o750); err != nil {
		return false, ferrors.WrapError(err, ferrors.CategoryFileSystem, "creating archive parent directory").Build()
	}
	out, err := os.Create(outFile) // #nosec G304 - outFile is caller-controlled cache storage path
	if err != nil {
		return false, ferrors.WrapError(err, ferrors.CategoryFileSystem, "creating archive "+outFile).Build()
	}
	defer func() { _ = out.Close() }()

	zw := zip.NewWriter(out)
	registerFastDeflate(zw)

	for _, rel := range matches {
		if err := addFileToZip(zw, dir, rel, preserve); err != nil {
			_ = zw.Close()
			return false, err
		}
	}
	if err := zw.Close(); err != nil {
		return false, ferrors.WrapError(err, ferrors.CategoryFileSystem, "finalizing archive "+outFile).Build()
	}
	return true, nil
}

func addFileToZip(zw *zip.Writer, baseDir, rel string, preserve bool) error {
	srcPath := filepath.Join(baseDir, rel)
	info, err := os.Stat(srcPath)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "statting "+srcPath).Build()
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "building archive header for "+rel).Build()
	}
	header.Name = filepath.ToSlash(rel)
	header.Method = zip.Deflate
	if !preserve {
		header.SetMode(0o644)
	}

	w, err := zw.CreateHeader(header)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "adding "+rel+" to archive").Build()
	}

	src, err := os.Open(srcPath) // #nosec G304 - srcPath is confined to baseDir by the directory walk
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "opening "+srcPath).Build()
	}
	defer func() { _ = src.Close() }()

	_, err = io.Copy(w, src)
	return err
}

// Unpack extracts file into destDir, recreating directories as needed. Entry
// paths are confined to destDir regardless of what the archive claims, so a
// maliciously-crafted entry can never escape via "..".
func (p *Packer) Unpack(file, destDir string, preserve bool) error {
	r, err := zip.OpenReader(file)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRestore, "opening archive "+file).Build()
	}
	defer func() { _ = r.Close() }()

	for _, entry := range r.File {
		if err := extractEntry(entry, destDir, preserve); err != nil {
			return err
		}
	}
	return nil
}

func extractEntry(entry *zip.File, destDir string, preserve bool) error {
	cleanName := filepath.Clean("/" + entry.Name)
	destPath := filepath.Join(destDir, cleanName)

	if entry.FileInfo().IsDir() {
		return os.MkdirAll(destPath, 0o750)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o750); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRestore, "creating directory for "+destPath).Build()
	}

	rc, err := entry.Open()
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRestore, "reading archive entry "+entry.Name).Build()
	}
	defer func() { _ = rc.Close() }()

	mode := os.FileMode(0o644)
	if preserve {
		mode = entry.Mode()
	}
	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode) // #nosec G304 - destPath is confined to destDir above
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRestore, "creating "+destPath).Build()
	}
	defer func() { _ = out.Close() }()

	_, err = io.Copy(out, rc)
	return err
}
