package persistence

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dfryer1193/gomovies/movie/domain"
	"github.com/google/uuid"
)

var _ domain.ImageStore = (*DiskImageStore)(nil)

// DiskImageStore writes uploads under a local directory. The BlobID of a
// stored image is its file path.
type DiskImageStore struct {
	dir string
}

func NewDiskImageStore(dir string) *DiskImageStore {
	return &DiskImageStore{dir: dir}
}

func (s *DiskImageStore) Kind() domain.ImageKind {
	return domain.ImageKindDisk
}

func (s *DiskImageStore) Save(_ context.Context, in *domain.ImageInput) (*domain.ImageRef, error) {
	if !in.IsUpload() {
		return nil, fmt.Errorf("image upload has no content")
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}

	// A random prefix keeps two uploads with the same name from colliding.
	path := filepath.Join(s.dir, uuid.NewString()+"-"+filepath.Base(in.Filename))

	file, err := os.OpenFile(filepath.Clean(path), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create image file: %w", err)
	}

	if _, err := io.Copy(file, in.Data); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("failed to write image file: %w", err)
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("failed to close image file: %w", err)
	}

	return &domain.ImageRef{
		BlobID:      path,
		Filename:    in.Filename,
		ContentType: in.ContentType,
	}, nil
}

func (s *DiskImageStore) Open(_ context.Context, ref *domain.ImageRef) (io.ReadCloser, error) {
	file, err := os.Open(filepath.Clean(ref.BlobID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: image file %s", domain.ErrNotFound, ref.BlobID)
		}
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}
	return file, nil
}

// Delete removes the file. A file that is already gone is not an error.
func (s *DiskImageStore) Delete(_ context.Context, ref *domain.ImageRef) error {
	if err := os.Remove(filepath.Clean(ref.BlobID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove image file: %w", err)
	}
	return nil
}
