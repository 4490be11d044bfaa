package reconciler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/afero"
)

// Script is a migration script held as lines. Each line keeps its original
// terminator so that writing the kept lines back reproduces them exactly.
type Script struct {
	Path  string
	Lines []string
}

// ReadScript loads the file at path. A missing file returns an error that
// satisfies errors.Is(err, os.ErrNotExist).
func ReadScript(fs afero.Fs, path string) (*Script, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	return &Script{Path: path, Lines: splitLines(string(data))}, nil
}

// splitLines splits content after each "\n", keeping the terminator.
// A final line without a terminator is kept as is.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.SplitAfter(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Without returns the concatenated text of every line whose index is not in
// removed, preserving order.
func (s *Script) Without(removed map[int]struct{}) string {
	var b strings.Builder
	for i, line := range s.Lines {
		if _, skip := removed[i]; skip {
			continue
		}
		b.WriteString(line)
	}
	return b.String()
}

// Rewrite replaces the script file's content with content. When Path is a
// symbolic link the file it points to is rewritten and the link is kept.
func (s *Script) Rewrite(fs afero.Fs, content []byte) error {
	target, err := resolveSymlinks(fs, s.Path)
	if err != nil {
		return err
	}
	return writeFileAtomic(fs, target, content)
}

const maxSymlinkHops = 40

// resolveSymlinks follows symbolic links at path on filesystems that expose
// them. Other filesystems return path unchanged.
func resolveSymlinks(fs afero.Fs, path string) (string, error) {
	lstater, ok := fs.(afero.Lstater)
	if !ok {
		return path, nil
	}
	reader, ok := fs.(afero.LinkReader)
	if !ok {
		return path, nil
	}

	for hop := 0; hop < maxSymlinkHops; hop++ {
		info, lstatCalled, err := lstater.LstatIfPossible(path)
		if err != nil {
			return "", fmt.Errorf("inspecting %s: %w", path, err)
		}
		if !lstatCalled || info.Mode()&os.ModeSymlink == 0 {
			return path, nil
		}
		target, err := reader.ReadlinkIfPossible(path)
		if err != nil {
			return "", fmt.Errorf("reading link %s: %w", path, err)
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(path), target)
		}
		path = target
	}
	return "", fmt.Errorf("resolving %s: too many levels of symbolic links", path)
}

// writeFileAtomic replaces path with content in one step: the data goes to a
// temporary file in the same directory which is then renamed over path.
//
// A single-file bind mount cannot be renamed over (EBUSY, EXDEV) and its
// directory is often not writable; in those cases path is overwritten
// directly instead.
func writeFileAtomic(fs afero.Fs, path string, content []byte) error {
	perm := os.FileMode(0o644)
	if info, err := fs.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	tmp, err := afero.TempFile(fs, filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return writeFileInPlace(fs, path, content, perm)
		}
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = fs.Remove(tmpName) }

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := fs.Chmod(tmpName, perm); err != nil {
		cleanup()
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := fs.Rename(tmpName, path); err != nil {
		cleanup()
		if errors.Is(err, syscall.EBUSY) || errors.Is(err, syscall.EXDEV) {
			return writeFileInPlace(fs, path, content, perm)
		}
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

func writeFileInPlace(fs afero.Fs, path string, content []byte, perm os.FileMode) error {
	if err := afero.WriteFile(fs, path, content, perm); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
