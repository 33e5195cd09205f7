package fsroot

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

var (
	ErrEmptyName   = errors.New("empty file name not allowed")
	ErrNameEscapes = errors.New("file name escapes vault directory")
)

const (
	DirPerm  = 0700 // vault directory: owner rwx only
	FilePerm = 0600 // vault files: owner rw only

	tmpSuffix = ".tmp"
)

// Root confines file operations to a single directory using os.Root.
// Every name handed to it must be local to that directory.
type Root struct {
	root *os.Root
	path string
}

// Open opens the directory at path, creating it with DirPerm if needed.
func Open(path string) (*Root, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	if err := os.MkdirAll(absPath, DirPerm); err != nil {
		return nil, fmt.Errorf("failed to create vault directory: %w", err)
	}

	root, err := os.OpenRoot(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open vault directory: %w", err)
	}

	return &Root{root: root, path: absPath}, nil
}

// Close releases the directory handle.
func (r *Root) Close() error {
	if r.root != nil {
		return r.root.Close()
	}
	return nil
}

// Path returns the absolute directory path.
func (r *Root) Path() string {
	return r.path
}

// Join returns the absolute path of name inside the root, for display only.
func (r *Root) Join(name string) string {
	return filepath.Join(r.path, name)
}

// ValidateName rejects empty names and names that are not local to the root.
func ValidateName(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if !filepath.IsLocal(name) {
		return fmt.Errorf("%w: %s", ErrNameEscapes, name)
	}
	return nil
}

// Exists reports whether name exists. Errors other than "not exist" are returned.
func (r *Root) Exists(name string) (bool, error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}
	_, err := r.root.Stat(name)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Stat returns file info for name.
func (r *Root) Stat(name string) (os.FileInfo, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	return r.root.Stat(name)
}

// ReadFile reads the whole file.
func (r *Root) ReadFile(name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	return r.root.ReadFile(name)
}

// Tail returns up to the last n bytes of name. A missing file yields nil.
func (r *Root) Tail(name string, n int64) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	f, err := r.root.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	offset := max(info.Size()-n, 0)

	buf := make([]byte, info.Size()-offset)
	if _, err := f.ReadAt(buf, offset); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return buf, nil
}

// WriteFileAtomic writes data to name.tmp, syncs it and renames it over name.
// Readers see either the old content or the new content, never a partial file.
func (r *Root) WriteFileAtomic(name string, data []byte) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	tmp := name + tmpSuffix
	f, err := r.root.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, FilePerm)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		r.root.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		r.root.Remove(tmp)
		return fmt.Errorf("failed to sync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		r.root.Remove(tmp)
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}

	if err := r.root.Rename(tmp, name); err != nil {
		r.root.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}

// Append writes data at the end of name in a single write call, creating the
// file if needed, and syncs it before returning.
func (r *Root) Append(name string, data []byte) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	f, err := r.root.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_APPEND, FilePerm)
	if err != nil {
		return fmt.Errorf("failed to open %s for append: %w", name, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to append to %s: %w", name, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync %s: %w", name, err)
	}
	return f.Close()
}

// Touch creates name empty if it does not exist. Existing content is kept.
func (r *Root) Touch(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	f, err := r.root.OpenFile(name, os.O_WRONLY|os.O_CREATE, FilePerm)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	return f.Close()
}

// Remove deletes name. A missing file is not an error.
func (r *Root) Remove(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	err := r.root.Remove(name)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
