package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/dfryer1193/gomovies/movie/domain"
	"github.com/dfryer1193/gomovies/shared/db"
	"github.com/dfryer1193/gomovies/shared/db/sqlite"
)

func setupTestMovieRepo(t *testing.T) *SQLiteMovieRepository {
	t.Helper()
	database := sqlite.NewSQLiteDB(&sqlite.SQLiteConfig{Path: sqlite.MemoryPath})
	if err := database.Connect(); err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	return NewSQLiteMovieRepository(database.DB())
}

func strPtr(s string) *string { return &s }

func TestSQLiteMovieRepository_InsertAndGet(t *testing.T) {
	repo := setupTestMovieRepo(t)
	ctx := context.Background()

	movie := &domain.Movie{
		Name:    "Matrix",
		Summary: strPtr("A hacker discovers reality"),
		Image:   &domain.ImageRef{BlobID: "images/poster.png", Filename: "poster.png", ContentType: "image/png"},
	}

	id, err := repo.Insert(ctx, movie)
	if err != nil {
		t.Fatalf("Failed to insert movie: %v", err)
	}
	if id == "" {
		t.Fatal("Insert() returned empty id")
	}

	retrieved, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("Failed to get movie: %v", err)
	}

	if retrieved.ID != id {
		t.Errorf("ID = %q, want %q", retrieved.ID, id)
	}
	if retrieved.Name != "Matrix" {
		t.Errorf("Name = %q, want %q", retrieved.Name, "Matrix")
	}
	if retrieved.Summary == nil || *retrieved.Summary != "A hacker discovers reality" {
		t.Errorf("Summary = %v, want %q", retrieved.Summary, "A hacker discovers reality")
	}
	if retrieved.Image == nil || *retrieved.Image != *movie.Image {
		t.Errorf("Image = %+v, want %+v", retrieved.Image, movie.Image)
	}
}

func TestSQLiteMovieRepository_InsertNil(t *testing.T) {
	repo := setupTestMovieRepo(t)

	if _, err := repo.Insert(context.Background(), nil); err == nil {
		t.Error("Expected error for nil movie, got nil")
	}
}

func TestSQLiteMovieRepository_InsertWithoutOptionalFields(t *testing.T) {
	repo := setupTestMovieRepo(t)
	ctx := context.Background()

	id, err := repo.Insert(ctx, &domain.Movie{Name: "Heat"})
	if err != nil {
		t.Fatalf("Failed to insert movie: %v", err)
	}

	retrieved, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("Failed to get movie: %v", err)
	}
	if retrieved.Summary != nil {
		t.Errorf("Summary = %q, want nil", *retrieved.Summary)
	}
	if retrieved.Image != nil {
		t.Errorf("Image = %+v, want nil", retrieved.Image)
	}
}

func TestSQLiteMovieRepository_GetNotFound(t *testing.T) {
	repo := setupTestMovieRepo(t)
	ctx := context.Background()

	tests := []struct {
		name string
		id   string
	}{
		{name: "unknown uuid", id: "7d444840-9dc0-11d1-b245-5ffdce74fad2"},
		{name: "malformed", id: "not-a-uuid"},
		{name: "empty", id: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.Get(ctx, tt.id)
			if !errors.Is(err, domain.ErrNotFound) {
				t.Errorf("Get(%q) error = %v, want ErrNotFound", tt.id, err)
			}
		})
	}
}

func TestSQLiteMovieRepository_List(t *testing.T) {
	repo := setupTestMovieRepo(t)
	ctx := context.Background()

	movies, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if movies == nil || len(movies) != 0 {
		t.Fatalf("List() = %v, want empty slice", movies)
	}

	names := []string{"Alien", "Aliens", "Alien 3"}
	for _, name := range names {
		if _, err := repo.Insert(ctx, &domain.Movie{Name: name}); err != nil {
			t.Fatalf("Failed to insert %s: %v", name, err)
		}
	}

	movies, err = repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(movies) != len(names) {
		t.Fatalf("List() returned %d movies, want %d", len(movies), len(names))
	}
	for i, name := range names {
		if movies[i].Name != name {
			t.Errorf("movies[%d].Name = %q, want %q", i, movies[i].Name, name)
		}
	}
}

func TestSQLiteMovieRepository_Update(t *testing.T) {
	repo := setupTestMovieRepo(t)
	ctx := context.Background()

	id, err := repo.Insert(ctx, &domain.Movie{
		Name:    "Matrix",
		Summary: strPtr("original"),
		Image:   &domain.ImageRef{BlobID: "images/old.png", Filename: "old.png", ContentType: "image/png"},
	})
	if err != nil {
		t.Fatalf("Failed to insert movie: %v", err)
	}

	// Partial update keeps the untouched fields.
	result, err := repo.Update(ctx, id, &domain.MoviePatch{Summary: strPtr("changed")})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if !result.Matched || !result.Modified {
		t.Errorf("Update() = %+v, want matched and modified", result)
	}

	retrieved, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if retrieved.Name != "Matrix" {
		t.Errorf("Name = %q, want unchanged", retrieved.Name)
	}
	if *retrieved.Summary != "changed" {
		t.Errorf("Summary = %q, want %q", *retrieved.Summary, "changed")
	}
	if retrieved.Image == nil || retrieved.Image.BlobID != "images/old.png" {
		t.Errorf("Image = %+v, want unchanged", retrieved.Image)
	}

	// Same values again is a match without modification.
	result, err = repo.Update(ctx, id, &domain.MoviePatch{Name: strPtr("Matrix"), Summary: strPtr("changed")})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if !result.Matched || result.Modified {
		t.Errorf("Update() = %+v, want matched only", result)
	}

	newImage := &domain.ImageRef{BlobID: "images/new.jpg", Filename: "new.jpg", ContentType: "image/jpeg"}
	result, err = repo.Update(ctx, id, &domain.MoviePatch{Image: newImage})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if !result.Modified {
		t.Errorf("Update() = %+v, want modified", result)
	}

	retrieved, err = repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if *retrieved.Image != *newImage {
		t.Errorf("Image = %+v, want %+v", retrieved.Image, newImage)
	}
}

func TestSQLiteMovieRepository_UpdateMissing(t *testing.T) {
	repo := setupTestMovieRepo(t)
	ctx := context.Background()

	for _, id := range []string{"7d444840-9dc0-11d1-b245-5ffdce74fad2", "bogus"} {
		result, err := repo.Update(ctx, id, &domain.MoviePatch{Name: strPtr("X")})
		if err != nil {
			t.Fatalf("Update(%q) error = %v", id, err)
		}
		if result.Matched {
			t.Errorf("Update(%q) matched a missing movie", id)
		}
	}
}

func TestSQLiteMovieRepository_Delete(t *testing.T) {
	repo := setupTestMovieRepo(t)
	ctx := context.Background()

	id, err := repo.Insert(ctx, &domain.Movie{Name: "Matrix"})
	if err != nil {
		t.Fatalf("Failed to insert movie: %v", err)
	}

	deleted, err := repo.Delete(ctx, id)
	if err != nil {
		t.Fatalf("Failed to delete movie: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Delete() = %d, want 1", deleted)
	}

	_, err = repo.Get(ctx, id)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}

	deleted, err = repo.Delete(ctx, id)
	if err != nil {
		t.Fatalf("second Delete() error = %v", err)
	}
	if deleted != 0 {
		t.Errorf("second Delete() = %d, want 0", deleted)
	}
}

func TestSQLiteMovieRepository_UpdateJoinsOuterTransaction(t *testing.T) {
	repo := setupTestMovieRepo(t)
	ctx := context.Background()

	id, err := repo.Insert(ctx, &domain.Movie{Name: "Matrix"})
	if err != nil {
		t.Fatalf("Failed to insert movie: %v", err)
	}

	errAbort := errors.New("abort")
	err = db.RunInTransaction(ctx, repo.db, func(txCtx context.Context) error {
		result, err := repo.Update(txCtx, id, &domain.MoviePatch{Name: strPtr("Reloaded")})
		if err != nil {
			return err
		}
		if !result.Modified {
			t.Errorf("Update() = %+v, want modified", result)
		}

		inside, err := repo.Get(txCtx, id)
		if err != nil {
			return err
		}
		if inside.Name != "Reloaded" {
			t.Errorf("Name inside transaction = %q, want %q", inside.Name, "Reloaded")
		}
		return errAbort
	})
	if !errors.Is(err, errAbort) {
		t.Fatalf("RunInTransaction() error = %v, want %v", err, errAbort)
	}

	retrieved, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if retrieved.Name != "Matrix" {
		t.Errorf("Name = %q, want the update rolled back with the outer transaction", retrieved.Name)
	}
}

func TestSQLiteMovieRepository_UpdateRollsBackOnFailure(t *testing.T) {
	repo := setupTestMovieRepo(t)
	ctx := context.Background()

	id, err := repo.Insert(ctx, &domain.Movie{Name: "Matrix", Summary: strPtr("original")})
	if err != nil {
		t.Fatalf("Failed to insert movie: %v", err)
	}

	_, err = repo.db.ExecContext(ctx, `
		CREATE TRIGGER reject_updates BEFORE UPDATE ON movies
		BEGIN
			SELECT RAISE(ABORT, 'updates rejected');
		END
	`)
	if err != nil {
		t.Fatalf("Failed to create trigger: %v", err)
	}

	_, err = repo.Update(ctx, id, &domain.MoviePatch{Name: strPtr("Reloaded"), Summary: strPtr("changed")})
	if err == nil {
		t.Fatal("Update() expected error from rejected statement")
	}

	retrieved, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if retrieved.Name != "Matrix" || *retrieved.Summary != "original" {
		t.Errorf("movie = %q/%q, want unchanged", retrieved.Name, *retrieved.Summary)
	}

	// The failed transaction must release the single connection.
	if _, err := repo.db.ExecContext(ctx, `DROP TRIGGER reject_updates`); err != nil {
		t.Fatalf("Failed to drop trigger: %v", err)
	}
	result, err := repo.Update(ctx, id, &domain.MoviePatch{Name: strPtr("Reloaded")})
	if err != nil {
		t.Fatalf("Update() after failure error = %v", err)
	}
	if !result.Modified {
		t.Errorf("Update() = %+v, want modified", result)
	}
}
