package persistence

import (
	"context"
	"errors"

	"github.com/dfryer1193/gomovies/movie/domain"
	"github.com/rs/zerolog/log"
)

var _ domain.MovieRepository = (*CachedMovieRepository)(nil)

// CachedMovieRepository serves Get from a cache and drops the entry once an
// update or delete reaches the repository. Cache failures are logged and fall
// through to the repository.
type CachedMovieRepository struct {
	repo  domain.MovieRepository
	cache domain.MovieCache
}

func NewCachedMovieRepository(repo domain.MovieRepository, cache domain.MovieCache) *CachedMovieRepository {
	return &CachedMovieRepository{
		repo:  repo,
		cache: cache,
	}
}

func (r *CachedMovieRepository) Insert(ctx context.Context, m *domain.Movie) (string, error) {
	return r.repo.Insert(ctx, m)
}

func (r *CachedMovieRepository) Get(ctx context.Context, id string) (*domain.Movie, error) {
	cached, err := r.cache.GetMovie(ctx, id)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		log.Warn().Err(err).Str("movieID", id).Msg("Movie cache read failed")
	}

	movie, err := r.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := r.cache.SetMovie(ctx, movie); err != nil {
		log.Warn().Err(err).Str("movieID", id).Msg("Movie cache write failed")
	}

	return movie, nil
}

func (r *CachedMovieRepository) List(ctx context.Context) ([]*domain.Movie, error) {
	return r.repo.List(ctx)
}

func (r *CachedMovieRepository) Update(ctx context.Context, id string, patch *domain.MoviePatch) (domain.UpdateResult, error) {
	result, err := r.repo.Update(ctx, id, patch)
	r.invalidate(ctx, id)
	return result, err
}

func (r *CachedMovieRepository) Delete(ctx context.Context, id string) (int64, error) {
	deleted, err := r.repo.Delete(ctx, id)
	r.invalidate(ctx, id)
	return deleted, err
}

func (r *CachedMovieRepository) invalidate(ctx context.Context, id string) {
	if err := r.cache.DeleteMovie(ctx, id); err != nil {
		log.Warn().Err(err).Str("movieID", id).Msg("Movie cache invalidation failed")
	}
}
