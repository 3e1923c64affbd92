package services

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/blake3"
)

// FileStore keeps one file per submission, named by the submission id, so
// original filenames never collide.
type FileStore struct {
	dir string
}

type StoredFile struct {
	Path string
	Size int64
	Hash string
}

func NewFileStore(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("upload directory is required")
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Dir() string {
	return s.dir
}

// Path is where the document for id is stored.
func (s *FileStore) Path(id, ext string) string {
	return filepath.Join(s.dir, id+"."+ext)
}

// Save streams r into place, failing with ErrFileTooLarge once more than
// maxBytes arrive. The file only appears under its final name when complete.
func (s *FileStore) Save(id, ext string, r io.Reader, maxBytes int64) (*StoredFile, error) {
	tmp, err := os.CreateTemp(s.dir, id+"-*.part")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	hasher := blake3.New()
	src := r
	if maxBytes > 0 {
		src = io.LimitReader(r, maxBytes+1)
	}
	size, err := io.Copy(io.MultiWriter(tmp, hasher), src)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("write upload: %w", err)
	}
	if maxBytes > 0 && size > maxBytes {
		cleanup()
		return nil, ErrFileTooLarge
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return nil, fmt.Errorf("sync upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("close upload: %w", err)
	}

	finalPath := s.Path(id, ext)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("move upload into place: %w", err)
	}

	return &StoredFile{
		Path: finalPath,
		Size: size,
		Hash: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Remove deletes the stored document; a missing file is not an error.
func (s *FileStore) Remove(id, ext string) error {
	err := os.Remove(s.Path(id, ext))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *FileStore) Exists(id, ext string) (bool, error) {
	info, err := os.Stat(s.Path(id, ext))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// StoredExt derives the on-disk extension from the original filename.
func StoredExt(filename string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
}
