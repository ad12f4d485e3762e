package sorter

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"syscall"
)

// Swapped in tests to reach the fallback paths.
var (
	linkFile   = os.Link
	renameFile = os.Rename
)

// moveFile moves src to dst without ever replacing an existing dst. It hard
// links and then removes src, since link fails atomically when dst exists.
// Filesystems without hard links fall back to rename, and moves across
// filesystems fall back to an exclusive copy and remove.
func moveFile(src, dst string) error {
	err := linkFile(src, dst)
	switch {
	case err == nil:
		if err := os.Remove(src); err != nil {
			os.Remove(dst)
			return fmt.Errorf("failed to remove source after link: %w", err)
		}
		return nil
	case errors.Is(err, fs.ErrExist):
		return fmt.Errorf("%w: %s", ErrDestinationExists, dst)
	case errors.Is(err, syscall.EXDEV):
		return copyAndRemove(src, dst)
	}

	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("%w: %s", ErrDestinationExists, dst)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat destination: %w", err)
	}

	err = renameFile(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return fmt.Errorf("failed to move %s: %w", src, err)
	}
	return copyAndRemove(src, dst)
}

func copyAndRemove(src, dst string) error {
	if err := copyFile(src, dst); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrDestinationExists, dst)
		}
		return err
	}
	if err := os.Remove(src); err != nil {
		os.Remove(dst)
		return fmt.Errorf("failed to remove source after copy: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat source: %w", err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("failed to copy data: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return fmt.Errorf("failed to finalize destination: %w", err)
	}

	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
