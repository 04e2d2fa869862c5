// Package storage keeps small client-side values, such as the session token,
// in files under a base directory.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
)

var ErrNotFound = errors.New("key not found")

var validKey = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

type LocalStorage struct {
	basePath string
}

func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o700); err != nil {
		return nil, err
	}
	return &LocalStorage{basePath: basePath}, nil
}

// DefaultDir is the per-user config directory for the CLI.
func DefaultDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "serwer-kart"), nil
}

func (ls *LocalStorage) getPathFromKey(key string) (string, error) {
	if !validKey.MatchString(key) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(ls.basePath, key), nil
}

// Save replaces the value under key. The write goes through a temp file so a
// crash never leaves a half-written value behind.
func (ls *LocalStorage) Save(key string, data io.Reader) error {
	filePath, err := ls.getPathFromKey(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(ls.basePath, "."+key+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filePath)
}

func (ls *LocalStorage) Get(key string) (io.ReadCloser, error) {
	filePath, err := ls.getPathFromKey(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, err
	}
	return file, nil
}

func (ls *LocalStorage) Delete(key string) error {
	filePath, err := ls.getPathFromKey(key)
	if err != nil {
		return err
	}

	err = os.Remove(filePath)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
