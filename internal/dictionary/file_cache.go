package dictionary

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileCache keeps downloaded dumps on disk, keyed by file name.
type FileCache struct {
	rootDir string
}

func NewFileCache(cacheDirectory string) *FileCache {
	return &FileCache{
		rootDir: cacheDirectory,
	}
}

func (f *FileCache) filePath(name string) string {
	return filepath.Join(f.rootDir, filepath.Base(name))
}

// cache returns the path of the cached file for name, calling f to fill it
// on a miss. A failed download leaves nothing behind.
func (cache *FileCache) cache(name string, f func() ([]byte, error)) (string, error) {
	localFilePath := cache.filePath(name)
	if _, err := os.Stat(localFilePath); err == nil {
		return localFilePath, nil
	}

	contents, err := f()
	if err != nil {
		return "", fmt.Errorf("fetch %s > %w", name, err)
	}

	if err := os.MkdirAll(cache.rootDir, 0755); err != nil {
		return "", fmt.Errorf("os.MkdirAll > %w", err)
	}
	tmp, err := os.CreateTemp(cache.rootDir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("os.CreateTemp > %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()
	if _, err := tmp.Write(contents); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("file.Write > %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("file.Close > %w", err)
	}
	if err := os.Rename(tmp.Name(), localFilePath); err != nil {
		return "", fmt.Errorf("os.Rename > %w", err)
	}
	return localFilePath, nil
}

func (cache *FileCache) read(name string) ([]byte, error) {
	contents, err := os.ReadFile(cache.filePath(name))
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile > %w", err)
	}
	return contents, nil
}
