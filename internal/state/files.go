package state

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// BuildsDir returns the directory holding per-build files for the history
// file at historyPath.
func BuildsDir(historyPath string) string {
	return filepath.Join(filepath.Dir(historyPath), "builds")
}

// BuildDir returns the directory of build number.
func BuildDir(historyPath string, number int) string {
	return filepath.Join(BuildsDir(historyPath), strconv.Itoa(number))
}

// ChangeLogPath returns the default change log file of build number.
func ChangeLogPath(historyPath string, number int) string {
	return filepath.Join(BuildDir(historyPath, number), "changelog.xml")
}

// RemoveBuildFiles deletes the directory of build number. A directory that
// resolves outside BuildsDir, through a symlink for example, is refused.
func RemoveBuildFiles(historyPath string, number int) error {
	root := BuildsDir(historyPath)
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil
	}
	resolved, err := within(root, strconv.Itoa(number))
	if err != nil {
		return err
	}
	if err := os.RemoveAll(resolved); err != nil {
		return fmt.Errorf("removing files of build #%d: %w", number, err)
	}
	return nil
}

// within checks that rel, joined to root, resolves inside root. Symlinks are
// resolved for the longest existing prefix. Returns the resolved path.
func within(root, rel string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", root, err)
	}
	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", fmt.Errorf("resolving %s symlinks: %w", root, err)
	}

	resolved, err := resolveExistingPath(filepath.Clean(filepath.Join(realRoot, rel)))
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", rel, err)
	}

	rootPrefix := realRoot + string(filepath.Separator)
	if resolved == realRoot || !strings.HasPrefix(resolved, rootPrefix) {
		return "", fmt.Errorf("path '%s' resolves to '%s' which is outside '%s'", rel, resolved, realRoot)
	}
	return resolved, nil
}

// resolveExistingPath resolves symlinks for the longest existing prefix of
// path, then appends the non-existing suffix.
func resolveExistingPath(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}

	dir := filepath.Dir(path)
	if dir == path {
		return path, nil
	}
	resolvedDir, err := resolveExistingPath(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedDir, filepath.Base(path)), nil
}

// writeAtomic writes content to path through a synced temp file in the same
// directory and a rename.
func writeAtomic(path string, content []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".vault-scm-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming temp file to %s: %w", path, err)
	}

	success = true
	return nil
}
