package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var (
	ErrRootNotFound = errors.New("frames root does not exist")
	ErrInvalidPath  = errors.New("invalid path")
)

// ImageExtensions are the frame file extensions, compared case-insensitively.
var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".tif", ".tiff"}

type FileInfo struct {
	Filename string
	Size     int64
	ModTime  time.Time
}

// KeyframeStore persists a document's selected frames and lets a reviewer
// inspect and prune them.
type KeyframeStore interface {
	DocumentDir(doc string) (string, error)
	WriteKeyframes(docDir string, frames []string) (string, error)
	ListKeyframes(doc string) ([]FileInfo, error)
	OpenKeyframe(doc, filename string) (io.ReadSeekCloser, error)
	PruneKeyframes(doc string, keep []string) (int, error)
}

func IsImage(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range ImageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ListFrames returns the image files directly inside dir, sorted by name.
func ListFrames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frames directory: %w", err)
	}

	var frames []string
	for _, entry := range entries {
		if !IsImage(entry.Name()) {
			continue
		}
		if mode, err := targetMode(dir, entry); err != nil || !mode.IsRegular() {
			continue
		}
		frames = append(frames, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(frames)
	return frames, nil
}

// targetMode reports the type of entry, following symlinks. Broken links
// return an error.
func targetMode(dir string, entry fs.DirEntry) (fs.FileMode, error) {
	if entry.Type()&fs.ModeSymlink == 0 {
		return entry.Type(), nil
	}
	info, err := os.Stat(filepath.Join(dir, entry.Name()))
	if err != nil {
		return 0, err
	}
	return info.Mode().Type(), nil
}

// ListDocuments returns the subdirectories of root holding at least one
// image file, sorted by name.
func ListDocuments(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRootNotFound, root)
		}
		return nil, fmt.Errorf("failed to stat frames root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrRootNotFound, root)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read frames root: %w", err)
	}

	var docs []string
	for _, entry := range entries {
		if mode, err := targetMode(root, entry); err != nil || !mode.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		frames, err := ListFrames(dir)
		if err != nil || len(frames) == 0 {
			continue
		}
		docs = append(docs, dir)
	}
	sort.Strings(docs)
	return docs, nil
}
