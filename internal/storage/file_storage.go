package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	errpkg "github.com/linshen005/youtube-downloader-backend/internal/errors"
)

// FileStorage provides access to the shared download directory. Files only
// ever appear in it fully formed (atomic rename) and are only ever removed
// whole, so concurrent readers never observe partial content.
type FileStorage struct {
	dir string
}

// FileEntry describes one regular file in the directory.
type FileEntry struct {
	Name     string
	Size     int64
	Modified time.Time
}

// NewFileStorage creates a FileStorage rooted at dir.
func NewFileStorage(dir string) *FileStorage {
	return &FileStorage{dir: filepath.Clean(dir)}
}

// Dir returns the storage root.
func (s *FileStorage) Dir() string {
	return s.dir
}

// Resolve joins name onto the storage root and verifies the result stays
// lexically inside it. This is the second line of defense behind the
// safe-filename check at the request boundary.
func (s *FileStorage) Resolve(name string) (string, error) {
	path := filepath.Join(s.dir, name)

	rel, err := filepath.Rel(s.dir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errpkg.ErrUnsafeFilename
	}
	return path, nil
}

// Stat returns info for a file in the directory, or ErrFileNotFound.
// Dot-prefixed names are staging artifacts and are reported as absent.
func (s *FileStorage) Stat(name string) (FileEntry, error) {
	if strings.HasPrefix(name, ".") {
		return FileEntry{}, errpkg.ErrFileNotFound
	}

	path, err := s.Resolve(name)
	if err != nil {
		return FileEntry{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileEntry{}, errpkg.ErrFileNotFound
		}
		return FileEntry{}, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return FileEntry{}, errpkg.ErrFileNotFound
	}

	return FileEntry{Name: name, Size: info.Size(), Modified: info.ModTime()}, nil
}

// List returns all regular files in the directory sorted by modification time,
// newest first.
func (s *FileStorage) List() ([]FileEntry, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read download directory: %w", err)
	}

	files := make([]FileEntry, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileEntry{
			Name:     entry.Name(),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Modified.After(files[j].Modified)
	})
	return files, nil
}

// Delete removes a file from the directory. Returns ErrFileNotFound if it does
// not exist.
func (s *FileStorage) Delete(name string) error {
	path, err := s.Resolve(name)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return errpkg.ErrFileNotFound
		}
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// Finalize moves src into the directory under finalName and returns the
// absolute destination path. A plain rename is attempted first; if src lives
// on another filesystem the file is staged under a dot-prefixed name and then
// renamed, so the final name never refers to partial content.
func (s *FileStorage) Finalize(src, finalName string) (string, error) {
	dst, err := s.Resolve(finalName)
	if err != nil {
		return "", err
	}

	if err := os.Rename(src, dst); err == nil {
		return dst, nil
	}

	staging := filepath.Join(s.dir, "."+finalName+".partial")
	if err := copyFile(src, staging); err != nil {
		os.Remove(staging)
		return "", fmt.Errorf("stage file: %w", err)
	}
	if err := os.Rename(staging, dst); err != nil {
		os.Remove(staging)
		return "", fmt.Errorf("finalize file: %w", err)
	}
	os.Remove(src)

	return dst, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// FormatSize renders a byte count as a human-readable string.
func FormatSize(size int64) string {
	if size < 1024 {
		return fmt.Sprintf("%d B", size)
	}

	kb := float64(size) / 1024
	if kb < 1024 {
		return fmt.Sprintf("%.2f KB", kb)
	}

	mb := kb / 1024
	if mb < 1024 {
		return fmt.Sprintf("%.2f MB", mb)
	}

	return fmt.Sprintf("%.2f GB", mb/1024)
}
