package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Compile-time check that FileSystem implements Storage.
var _ Storage = (*FileSystem)(nil)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_\-.]`)

// FileSystem implements Storage using the local filesystem.
// Files are stored at <basePath>/<owner>/<name>, with both parts reduced to
// safe characters.
type FileSystem struct {
	basePath string
}

// NewFileSystem creates a new FileSystem storage rooted at basePath.
func NewFileSystem(basePath string) *FileSystem {
	return &FileSystem{basePath: basePath}
}

// ownerPath returns the directory holding an owner's files.
func (fs *FileSystem) ownerPath(owner string) string {
	return filepath.Join(fs.basePath, safeName(owner))
}

// Path returns the full path of a stored file.
func (fs *FileSystem) Path(owner, name string) string {
	return filepath.Join(fs.ownerPath(owner), safeName(filepath.Base(name)))
}

// safeName also strips leading dots, so stored names never clash with
// temp files or climb out of the base directory.
func safeName(s string) string {
	s = strings.TrimLeft(unsafeChars.ReplaceAllString(s, "_"), ".")
	if s == "" {
		return "_"
	}
	return s
}

// Store writes data from the reader to disk using atomic write (temp file + rename).
// An existing file of the same name is replaced.
func (fs *FileSystem) Store(owner, name string, data io.Reader) (int64, error) {
	dir := fs.ownerPath(owner)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	// Clean up the temp file on any error path.
	defer func() {
		if tmpPath != "" {
			os.Remove(tmpPath)
		}
	}()

	n, err := io.Copy(tmp, data)
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("writing data: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("closing temp file: %w", err)
	}

	dst := fs.Path(owner, name)
	if err := os.Rename(tmpPath, dst); err != nil {
		return 0, fmt.Errorf("renaming temp file to %s: %w", dst, err)
	}
	tmpPath = ""

	return n, nil
}

// Delete removes a stored file.
// It is idempotent: deleting a missing file returns no error.
func (fs *FileSystem) Delete(owner, name string) error {
	path := fs.Path(owner, name)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

// Exists checks whether a file is stored.
func (fs *FileSystem) Exists(owner, name string) (bool, error) {
	path := fs.Path(owner, name)
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("checking file %s: %w", path, err)
}
