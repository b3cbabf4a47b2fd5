package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dfryer1193/gomovies/movie/domain"
	"github.com/rs/zerolog/log"
)

// DefaultMaxImageSize is used when the service is built with a non-positive limit.
const DefaultMaxImageSize = 10 * 1024 * 1024

// CreateMovieInput is the client-supplied part of a new movie.
type CreateMovieInput struct {
	Name    string
	Summary *string
	Image   *domain.ImageInput
}

// UpdateMovieInput holds optional replacements. Nil fields are kept as stored.
type UpdateMovieInput struct {
	Name    *string
	Summary *string
	Image   *domain.ImageInput
}

// MovieService coordinates the movie records and the image store.
//
// None of the operations are atomic across the two stores, and nothing here
// serializes concurrent requests for the same movie. A blob written before a
// failed insert stays orphaned, and a delete whose blob removal fails still
// removes the record.
type MovieService struct {
	repo         domain.MovieRepository
	images       domain.ImageStore
	maxImageSize int64
}

func NewMovieService(repo domain.MovieRepository, images domain.ImageStore, maxImageSize int64) *MovieService {
	if maxImageSize <= 0 {
		maxImageSize = DefaultMaxImageSize
	}

	return &MovieService{
		repo:         repo,
		images:       images,
		maxImageSize: maxImageSize,
	}
}

// ImageKind reports how images are represented by this service.
func (s *MovieService) ImageKind() domain.ImageKind {
	return s.images.Kind()
}

// MaxImageSize is the largest upload accepted, in bytes.
func (s *MovieService) MaxImageSize() int64 {
	return s.maxImageSize
}

// Create stores the image first, then writes the record that references it.
func (s *MovieService) Create(ctx context.Context, in CreateMovieInput) (*domain.Movie, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}

	if err := s.validateImage(in.Image); err != nil {
		return nil, err
	}

	movie := &domain.Movie{
		Name:    in.Name,
		Summary: in.Summary,
	}

	if in.Image != nil {
		ref, err := s.saveImage(ctx, in.Image)
		if err != nil {
			return nil, err
		}
		movie.Image = ref
	}

	id, err := s.repo.Insert(ctx, movie)
	if err != nil {
		if movie.Image != nil {
			log.Warn().Err(err).Str("blobID", movie.Image.BlobID).Msg("Movie insert failed after image was stored; image is orphaned")
		}
		return nil, fmt.Errorf("failed to insert movie: %w", err)
	}

	created, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read back movie %s: %w", id, err)
	}

	return created, nil
}

// Get returns domain.ErrNotFound for unknown or malformed IDs.
func (s *MovieService) Get(ctx context.Context, id string) (*domain.Movie, error) {
	return s.repo.Get(ctx, id)
}

// List returns every movie; the slice is never nil.
func (s *MovieService) List(ctx context.Context) ([]*domain.Movie, error) {
	movies, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list movies: %w", err)
	}

	if movies == nil {
		movies = []*domain.Movie{}
	}

	return movies, nil
}

// Update merges the supplied fields into the stored movie. A replacement image
// causes the old one to be released before the new one is stored; a failure to
// release the old image is logged and does not stop the update.
func (s *MovieService) Update(ctx context.Context, id string, in UpdateMovieInput) (*domain.Movie, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, fmt.Errorf("%w: name cannot be empty", domain.ErrInvalidInput)
	}

	if err := s.validateImage(in.Image); err != nil {
		return nil, err
	}

	patch := &domain.MoviePatch{
		Name:    in.Name,
		Summary: in.Summary,
	}

	if in.Image != nil {
		if existing.Image != nil {
			if err := s.images.Delete(ctx, existing.Image); err != nil {
				log.Warn().Err(err).Str("movieID", id).Str("blobID", existing.Image.BlobID).Msg("Failed to delete previous image, continuing with update")
			}
		}

		ref, err := s.saveImage(ctx, in.Image)
		if err != nil {
			return nil, err
		}
		patch.Image = ref
	}

	if patch.IsEmpty() {
		return existing, nil
	}

	result, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to update movie %s: %w", id, err)
	}

	if !result.Matched {
		return nil, domain.ErrNotFound
	}

	if !result.Modified {
		return existing, nil
	}

	updated, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// Delete removes the record, then its image. An image that cannot be removed
// is reported as domain.ErrBlobDeleteFailed even though the record is gone.
func (s *MovieService) Delete(ctx context.Context, id string) error {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete movie %s: %w", id, err)
	}

	if deleted == 0 {
		return domain.ErrNotFound
	}

	if existing.Image == nil {
		return nil
	}

	if err := s.images.Delete(ctx, existing.Image); err != nil {
		return fmt.Errorf("%w %s for movie %s: %v", domain.ErrBlobDeleteFailed, existing.Image.BlobID, id, err)
	}

	return nil
}

// OpenImage returns the movie's image reference and its bytes. Link-only
// images come back with a nil reader.
func (s *MovieService) OpenImage(ctx context.Context, id string) (*domain.ImageRef, io.ReadCloser, error) {
	movie, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	if movie.Image == nil {
		return nil, nil, fmt.Errorf("%w: movie %s has no image", domain.ErrNotFound, id)
	}

	if s.images.Kind() == domain.ImageKindURL {
		return movie.Image, nil, nil
	}

	rc, err := s.images.Open(ctx, movie.Image)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrBlobStore, err)
	}

	return movie.Image, rc, nil
}

// validateImage checks the input against the store's mode before any store is touched.
func (s *MovieService) validateImage(in *domain.ImageInput) error {
	if in == nil {
		return nil
	}

	if s.images.Kind() == domain.ImageKindURL {
		if in.IsUpload() {
			return fmt.Errorf("%w: image uploads are not accepted, supply a URL", domain.ErrInvalidInput)
		}
		return ValidateImageURL(in.URL)
	}

	if !in.IsUpload() {
		return fmt.Errorf("%w: an image file upload is required", domain.ErrInvalidInput)
	}

	if !IsAllowedImage(in.Filename) {
		return fmt.Errorf("%w: %q, allowed extensions are jpg, jpeg and png", domain.ErrInvalidImageFormat, in.Filename)
	}

	if in.Size > s.maxImageSize {
		return fmt.Errorf("%w: image exceeds %d bytes", domain.ErrInvalidInput, s.maxImageSize)
	}

	return nil
}

func (s *MovieService) saveImage(ctx context.Context, in *domain.ImageInput) (*domain.ImageRef, error) {
	ref, err := s.images.Save(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBlobStore, err)
	}
	return ref, nil
}
