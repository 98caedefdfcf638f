package storage

import "io"

// Storage keeps downloaded files, partitioned per operator.
type Storage interface {
	// Store writes data under owner/name and returns the number of bytes
	// written.
	Store(owner, name string, data io.Reader) (int64, error)

	// Delete removes a stored file.
	Delete(owner, name string) error

	// Exists checks whether a file is stored.
	Exists(owner, name string) (bool, error)

	// Path returns where owner/name lives on disk.
	Path(owner, name string) string
}
