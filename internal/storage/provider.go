// Package storage implements file-system access to the watch target.
package storage

import "github.com/starford/tidy/internal/models"

// Provider is the interface for watch target operations.
type Provider interface {
	// Root returns the absolute path of the watch target.
	Root() string
	// Entries lists the files directly inside the watch target, skipping
	// directories and dotfiles.
	Entries() ([]models.FileEntry, error)
	// Resolve turns a rule or bucket folder into an absolute directory.
	Resolve(folder string) (string, error)
	// Move moves the file name into destDir, creating destDir if needed,
	// and returns the new absolute path.
	Move(name, destDir string) (string, error)
}

// Verify *FS satisfies Provider at compile time.
var _ Provider = (*FS)(nil)
