package domain

import (
	"context"
)

// Movie is a catalogue entry. ID is assigned by the MovieRepository on insert
// and never changes afterwards.
type Movie struct {
	ID      string
	Name    string
	Summary *string
	Image   *ImageRef
}

// MoviePatch carries the fields of an update. A nil field is left untouched,
// so a patch can never clear a value.
type MoviePatch struct {
	Name    *string
	Summary *string
	Image   *ImageRef
}

// IsEmpty reports whether the patch would change nothing.
func (p *MoviePatch) IsEmpty() bool {
	return p == nil || (p.Name == nil && p.Summary == nil && p.Image == nil)
}

// UpdateResult mirrors what a document store reports for a single update.
type UpdateResult struct {
	Matched  bool
	Modified bool
}

type MovieRepository interface {
	// Insert stores a new movie and returns the generated ID.
	Insert(ctx context.Context, m *Movie) (string, error)

	// Get returns ErrNotFound if there is no movie with the ID or the ID is not
	// well formed for the store.
	Get(ctx context.Context, id string) (*Movie, error)

	// List returns every movie in store iteration order.
	List(ctx context.Context) ([]*Movie, error)

	// Update merges the patch into the stored movie.
	Update(ctx context.Context, id string, patch *MoviePatch) (UpdateResult, error)

	// Delete removes the movie and reports how many records were removed.
	Delete(ctx context.Context, id string) (int64, error)
}

// MovieCache holds serialized movies keyed by ID. A miss is reported as
// ErrNotFound.
type MovieCache interface {
	GetMovie(ctx context.Context, id string) (*Movie, error)
	SetMovie(ctx context.Context, m *Movie) error
	DeleteMovie(ctx context.Context, id string) error
}
