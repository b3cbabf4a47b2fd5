package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dfryer1193/gomovies/movie/domain"
	"github.com/dfryer1193/gomovies/shared/db"
	"github.com/google/uuid"
)

var _ domain.MovieRepository = (*SQLiteMovieRepository)(nil)

// SQLiteMovieRepository implements domain.MovieRepository using SQL database (SQLite).
// IDs are random UUIDs; List follows insertion order.
type SQLiteMovieRepository struct {
	db *sql.DB
}

// NewSQLiteMovieRepository creates a new SQLiteMovieRepository from a standard sql.DB
func NewSQLiteMovieRepository(sqlDB *sql.DB) *SQLiteMovieRepository {
	return &SQLiteMovieRepository{
		db: sqlDB,
	}
}

const insertMovieQuery = `
	INSERT INTO movies (id, name, summary, img_blob_id, img_filename, img_content_type, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
`

func (r *SQLiteMovieRepository) Insert(ctx context.Context, m *domain.Movie) (string, error) {
	if m == nil {
		return "", fmt.Errorf("movie cannot be nil")
	}

	id := uuid.NewString()
	row := fromDomain(m)

	executor := db.GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, insertMovieQuery,
		id,
		row.Name,
		row.Summary,
		row.ImgBlobID,
		row.ImgFilename,
		row.ImgContentType,
		time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert movie: %w", err)
	}

	return id, nil
}

const getMovieQuery = `
	SELECT id, name, summary, img_blob_id, img_filename, img_content_type
	FROM movies
	WHERE id = ?
`

func (r *SQLiteMovieRepository) Get(ctx context.Context, id string) (*domain.Movie, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %q is not a valid id", domain.ErrNotFound, id)
	}

	row, err := r.getRow(ctx, db.GetExecutor(ctx, r.db), id)
	if err != nil {
		return nil, err
	}

	return row.toDomain(), nil
}

func (r *SQLiteMovieRepository) getRow(ctx context.Context, executor db.Executor, id string) (*movieRow, error) {
	var row movieRow
	err := executor.QueryRowContext(ctx, getMovieQuery, id).Scan(
		&row.ID,
		&row.Name,
		&row.Summary,
		&row.ImgBlobID,
		&row.ImgFilename,
		&row.ImgContentType,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get movie: %w", err)
	}

	return &row, nil
}

const listMoviesQuery = `
	SELECT id, name, summary, img_blob_id, img_filename, img_content_type
	FROM movies
	ORDER BY seq
`

func (r *SQLiteMovieRepository) List(ctx context.Context) ([]*domain.Movie, error) {
	rows, err := db.GetExecutor(ctx, r.db).QueryContext(ctx, listMoviesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list movies: %w", err)
	}
	defer rows.Close()

	movies := []*domain.Movie{}
	for rows.Next() {
		var row movieRow
		if err := rows.Scan(
			&row.ID,
			&row.Name,
			&row.Summary,
			&row.ImgBlobID,
			&row.ImgFilename,
			&row.ImgContentType,
		); err != nil {
			return nil, fmt.Errorf("failed to scan movie: %w", err)
		}
		movies = append(movies, row.toDomain())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate movies: %w", err)
	}

	return movies, nil
}

const updateMovieQuery = `
	UPDATE movies SET
		name = ?,
		summary = ?,
		img_blob_id = ?,
		img_filename = ?,
		img_content_type = ?,
		updated_at = ?
	WHERE id = ?
`

// Update reports Modified only when a supplied value differs from the stored
// one, matching document store semantics.
func (r *SQLiteMovieRepository) Update(ctx context.Context, id string, patch *domain.MoviePatch) (domain.UpdateResult, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.UpdateResult{}, nil
	}

	var result domain.UpdateResult
	err := db.RunInTransaction(ctx, r.db, func(txCtx context.Context) error {
		executor := db.GetExecutor(txCtx, r.db)

		current, err := r.getRow(txCtx, executor, id)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		result.Matched = true

		next := current.apply(patch)
		if next == *current {
			return nil
		}

		_, err = executor.ExecContext(txCtx, updateMovieQuery,
			next.Name,
			next.Summary,
			next.ImgBlobID,
			next.ImgFilename,
			next.ImgContentType,
			time.Now().UTC(),
			id,
		)
		if err != nil {
			return fmt.Errorf("failed to update movie: %w", err)
		}

		result.Modified = true
		return nil
	})
	if err != nil {
		return domain.UpdateResult{}, err
	}

	return result, nil
}

const deleteMovieQuery = `
	DELETE FROM movies WHERE id = ?
`

func (r *SQLiteMovieRepository) Delete(ctx context.Context, id string) (int64, error) {
	if _, err := uuid.Parse(id); err != nil {
		return 0, nil
	}

	res, err := db.GetExecutor(ctx, r.db).ExecContext(ctx, deleteMovieQuery, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete movie: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read deleted count: %w", err)
	}

	return deleted, nil
}

// movieRow is a private struct used to scan database rows
type movieRow struct {
	ID             string         `db:"id"`
	Name           string         `db:"name"`
	Summary        sql.NullString `db:"summary"`
	ImgBlobID      sql.NullString `db:"img_blob_id"`
	ImgFilename    sql.NullString `db:"img_filename"`
	ImgContentType sql.NullString `db:"img_content_type"`
}

func fromDomain(m *domain.Movie) movieRow {
	row := movieRow{
		ID:   m.ID,
		Name: m.Name,
	}

	if m.Summary != nil {
		row.Summary = sql.NullString{String: *m.Summary, Valid: true}
	}

	row.setImage(m.Image)
	return row
}

func (mr *movieRow) setImage(ref *domain.ImageRef) {
	if ref == nil {
		return
	}
	mr.ImgBlobID = sql.NullString{String: ref.BlobID, Valid: true}
	mr.ImgFilename = sql.NullString{String: ref.Filename, Valid: true}
	mr.ImgContentType = sql.NullString{String: ref.ContentType, Valid: true}
}

// apply returns a copy of the row with the non-nil patch fields merged in.
func (mr movieRow) apply(patch *domain.MoviePatch) movieRow {
	if patch == nil {
		return mr
	}

	if patch.Name != nil {
		mr.Name = *patch.Name
	}
	if patch.Summary != nil {
		mr.Summary = sql.NullString{String: *patch.Summary, Valid: true}
	}
	mr.setImage(patch.Image)

	return mr
}

// toDomain converts a movieRow to a domain.Movie, handling nullable columns
func (mr *movieRow) toDomain() *domain.Movie {
	m := &domain.Movie{
		ID:   mr.ID,
		Name: mr.Name,
	}

	if mr.Summary.Valid {
		summary := mr.Summary.String
		m.Summary = &summary
	}

	if mr.ImgBlobID.Valid {
		m.Image = &domain.ImageRef{
			BlobID:      mr.ImgBlobID.String,
			Filename:    mr.ImgFilename.String,
			ContentType: mr.ImgContentType.String,
		}
	}

	return m
}
