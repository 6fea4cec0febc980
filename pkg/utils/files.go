package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// maxSymlinks bounds symlink resolution, matching the usual kernel limit.
const maxSymlinks = 40

// WriteFileAtomic writes data to a hidden temporary file next to path and
// renames it over path once the data is flushed. On failure path is left
// as it was and the temporary file is removed.
//
// If path is a symlink the file it points to is replaced and the link is
// kept. An existing file keeps its permission bits; new files get 0644.
func WriteFileAtomic(fs afero.Fs, path string, data []byte) error {
	if _, base := filepath.Split(path); base == "" {
		return fmt.Errorf("output path %q names a directory", path)
	}
	target, perm, err := resolveTarget(fs, path)
	if err != nil {
		return fmt.Errorf("failed to resolve output path: %w", err)
	}
	dir, base := filepath.Split(target)
	tmp := filepath.Join(dir, tempName(base))

	fh, err := fs.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	if _, err := fh.Write(data); err != nil {
		fh.Close()
		_ = fs.Remove(tmp)
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := fh.Sync(); err != nil {
		fh.Close()
		_ = fs.Remove(tmp)
		return fmt.Errorf("failed to flush temporary file: %w", err)
	}
	if err := fh.Close(); err != nil {
		_ = fs.Remove(tmp)
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	// OpenFile applies the umask
	if err := fs.Chmod(tmp, perm); err != nil {
		_ = fs.Remove(tmp)
		return fmt.Errorf("failed to set file mode: %w", err)
	}

	if err := fs.Rename(tmp, target); err != nil {
		_ = fs.Remove(tmp)
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}

// resolveTarget follows symlinks at path and returns the file to replace
// along with the permission bits it should end up with.
func resolveTarget(fs afero.Fs, path string) (string, os.FileMode, error) {
	lstater, canLstat := fs.(afero.Lstater)
	reader, canReadlink := fs.(afero.LinkReader)

	for i := 0; i < maxSymlinks; i++ {
		var info os.FileInfo
		var err error
		if canLstat {
			info, _, err = lstater.LstatIfPossible(path)
		} else {
			info, err = fs.Stat(path)
		}
		if errors.Is(err, os.ErrNotExist) {
			return path, 0644, nil
		}
		if err != nil {
			return "", 0, err
		}
		if info.Mode()&os.ModeSymlink == 0 || !canReadlink {
			return path, info.Mode().Perm(), nil
		}

		link, err := reader.ReadlinkIfPossible(path)
		if err != nil {
			return "", 0, err
		}
		if !filepath.IsAbs(link) {
			link = filepath.Join(filepath.Dir(path), link)
		}
		path = link
	}
	return "", 0, fmt.Errorf("too many levels of symbolic links at %s", path)
}

// tempName derives a unique hidden name for base
func tempName(base string) string {
	return "." + base + "." + uuid.NewString() + ".tmp"
}
