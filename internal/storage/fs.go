package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/starford/tidy/internal/apperr"
	"github.com/starford/tidy/internal/models"
)

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to the watch target
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("storage: %s: %w", abs, apperr.ErrBadTarget)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: %s: %w", abs, apperr.ErrBadTarget)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute watch target path.
func (f *FS) Root() string { return f.root }

// Resolve returns folder unchanged (cleaned) when it is absolute. Relative
// folders are joined to the root and must not escape it.
func (f *FS) Resolve(folder string) (string, error) {
	if folder == "" {
		return "", fmt.Errorf("storage: empty destination folder")
	}
	cleaned := filepath.Clean(folder)
	if filepath.IsAbs(cleaned) {
		return cleaned, nil
	}
	abs := filepath.Join(f.root, cleaned)
	rel, err := filepath.Rel(f.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: path escapes watch root: %s", folder)
	}
	return abs, nil
}

// Entries returns the files directly under the root, sorted by name.
// Directories (including symlinks to directories) and names starting with
// a dot are skipped.
func (f *FS) Entries() ([]models.FileEntry, error) {
	dirents, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", f.root, err)
	}
	out := make([]models.FileEntry, 0, len(dirents))
	for _, d := range dirents {
		name := d.Name()
		if strings.HasPrefix(name, ".") || d.IsDir() {
			continue
		}
		full := filepath.Join(f.root, name)
		if st, statErr := os.Stat(full); statErr == nil && st.IsDir() {
			continue
		}
		info, err := d.Info()
		if err != nil {
			// Vanished between ReadDir and Info; the next cycle will see it or not.
			continue
		}
		out = append(out, models.FileEntry{
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return out, nil
}

// Move moves root/name into destDir. Existing files at the destination
// are handled by the platform rename (replaced on POSIX).
func (f *FS) Move(name, destDir string) (string, error) {
	if name == "" || filepath.Base(name) != name {
		return "", fmt.Errorf("storage: invalid file name: %q", name)
	}
	src := filepath.Join(f.root, name)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("storage: mkdir %s: %w", destDir, err)
	}
	dst := filepath.Join(destDir, name)
	err := os.Rename(src, dst)
	if errors.Is(err, syscall.EXDEV) {
		err = copyAndRemove(src, dst)
	}
	if err != nil {
		return "", fmt.Errorf("storage: move %s: %w", name, err)
	}
	return dst, nil
}

// copyAndRemove is the cross-device fallback for Move.
func copyAndRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	_ = os.Chtimes(dst, info.ModTime(), info.ModTime())
	return os.Remove(src)
}

// WriteFileAtomic writes content to path: tmp file → fsync → rename.
func WriteFileAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tidy-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("storage: chmod: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}
