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
)

const (
	DefaultOutputSubdir = "keyframes"
	DefaultStaleExt     = ".jpg"
)

// LocalStorage writes keyframes into a subdirectory of each document
// directory. Documents addressed by name resolve under basePath.
type LocalStorage struct {
	basePath     string
	outputSubdir string
	staleExt     string
}

func NewLocalStorage(basePath, outputSubdir, staleExt string) *LocalStorage {
	if outputSubdir == "" {
		outputSubdir = DefaultOutputSubdir
	}
	if staleExt == "" {
		staleExt = DefaultStaleExt
	}
	if !strings.HasPrefix(staleExt, ".") {
		staleExt = "." + staleExt
	}
	return &LocalStorage{
		basePath:     basePath,
		outputSubdir: outputSubdir,
		staleExt:     staleExt,
	}
}

func (ls *LocalStorage) OutputSubdir() string {
	return ls.outputSubdir
}

func (ls *LocalStorage) OutputDir(docDir string) string {
	return filepath.Join(docDir, ls.outputSubdir)
}

// WriteKeyframes replaces the previous selection of docDir with frames.
// Only stale files carrying the configured extension are removed; other
// files in the output directory are left alone.
func (ls *LocalStorage) WriteKeyframes(docDir string, frames []string) (string, error) {
	outDir := ls.OutputDir(docDir)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := ls.removeStale(outDir); err != nil {
		return "", err
	}

	for _, frame := range frames {
		dst := filepath.Join(outDir, filepath.Base(frame))
		if err := copyFile(frame, dst); err != nil {
			return "", fmt.Errorf("failed to copy %s: %w", filepath.Base(frame), err)
		}
	}

	return outDir, nil
}

func (ls *LocalStorage) removeStale(outDir string) error {
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return fmt.Errorf("failed to read output directory: %w", err)
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() || filepath.Ext(entry.Name()) != ls.staleExt {
			continue
		}
		if err := os.Remove(filepath.Join(outDir, entry.Name())); err != nil {
			return fmt.Errorf("failed to remove stale keyframe: %w", err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	// A read-only copy left by an earlier run cannot be opened for writing.
	if err := os.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

// DocumentDir resolves a document name under the base path.
func (ls *LocalStorage) DocumentDir(doc string) (string, error) {
	if ls.basePath == "" {
		return "", fmt.Errorf("%w: no frames root configured", ErrInvalidPath)
	}
	clean, err := cleanName(doc)
	if err != nil {
		return "", err
	}
	return filepath.Join(ls.basePath, clean), nil
}

func (ls *LocalStorage) keyframeDir(doc string) (string, error) {
	docDir, err := ls.DocumentDir(doc)
	if err != nil {
		return "", err
	}
	return ls.OutputDir(docDir), nil
}

func (ls *LocalStorage) ListKeyframes(doc string) ([]FileInfo, error) {
	dir, err := ls.keyframeDir(doc)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read keyframes: %w", err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !IsImage(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Filename: entry.Name(),
			Size:     info.Size(),
			ModTime:  info.ModTime(),
		})
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].Filename < files[j].Filename
	})
	return files, nil
}

func (ls *LocalStorage) OpenKeyframe(doc, filename string) (io.ReadSeekCloser, error) {
	dir, err := ls.keyframeDir(doc)
	if err != nil {
		return nil, err
	}
	name, err := cleanName(filename)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to open keyframe: %w", err)
	}
	return file, nil
}

// PruneKeyframes deletes every file in the document's keyframe directory
// whose name is not in keep, and reports how many were removed.
func (ls *LocalStorage) PruneKeyframes(doc string, keep []string) (int, error) {
	dir, err := ls.keyframeDir(doc)
	if err != nil {
		return 0, err
	}

	keepSet := make(map[string]bool, len(keep))
	for _, name := range keep {
		keepSet[name] = true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read keyframes: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() || keepSet[entry.Name()] {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			return removed, fmt.Errorf("failed to delete keyframe: %w", err)
		}
		removed++
	}
	return removed, nil
}

// cleanName accepts a single path element.
func cleanName(name string) (string, error) {
	clean := filepath.Clean(name)
	if name == "" || clean == "." || strings.Contains(clean, "..") || strings.ContainsRune(clean, filepath.Separator) || filepath.IsAbs(clean) {
		return "", ErrInvalidPath
	}
	return clean, nil
}

var _ KeyframeStore = (*LocalStorage)(nil)
