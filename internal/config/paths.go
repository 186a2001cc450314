package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Project layout names.
const (
	ConfigDirName  = ".qabench"
	ConfigFileName = "config.yml"
)

// ConfigPath returns root/.qabench/config.yml.
func ConfigPath(root string) string {
	return filepath.Join(root, ConfigDirName, ConfigFileName)
}

// RootFromConfigPath returns the project directory owning configPath. Files
// outside a .qabench directory are rooted at their own directory.
func RootFromConfigPath(configPath string) string {
	dir := filepath.Dir(configPath)
	if filepath.Base(dir) != ConfigDirName {
		return dir
	}
	return filepath.Dir(dir)
}

// FindConfigPath walks from startDir towards the filesystem root and returns
// the first .qabench/config.yml it meets. An empty startDir means the
// working directory. It wraps ErrNoConfig when nothing is found.
func FindConfigPath(startDir string) (string, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolve start directory: %w", err)
	}
	for {
		path, found, err := configIn(dir)
		if err != nil || found {
			return path, err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w: no %s above %s", ErrNoConfig, filepath.Join(ConfigDirName, ConfigFileName), startDir)
		}
		dir = parent
	}
}

// configIn checks one directory. A .qabench directory without a config file
// is an error rather than a reason to keep walking.
func configIn(dir string) (string, bool, error) {
	path := ConfigPath(dir)
	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return "", false, fmt.Errorf("config path %q is a directory", path)
	case err == nil:
		return path, true, nil
	case !errors.Is(err, fs.ErrNotExist):
		return "", false, fmt.Errorf("stat %q: %w", path, err)
	}
	if info, err := os.Stat(filepath.Dir(path)); err == nil && info.IsDir() {
		return "", false, fmt.Errorf("%s exists but has no %s", filepath.Dir(path), ConfigFileName)
	}
	return "", false, nil
}
