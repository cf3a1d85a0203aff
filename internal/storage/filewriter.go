package storage

import "io"

// FileWriter abstracts filesystem operations for unpacking imports.
type FileWriter interface {
	// Write creates or overwrites a file at the given path with the given data.
	Write(path string, data []byte) error

	// Create opens a file for streaming writes, creating parent directories.
	Create(path string) (io.WriteCloser, error)

	// MkdirAll creates a directory path and all necessary parents.
	MkdirAll(path string) error

	// Remove deletes a file or directory (recursively).
	Remove(path string) error

	// Exists reports whether the given path exists.
	Exists(path string) bool

	// List returns the names of the entries directly under path, sorted.
	// A missing path yields an empty list.
	List(path string) ([]string, error)
}
