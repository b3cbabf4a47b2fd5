package persistence

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dfryer1193/gomovies/movie/domain"
)

func TestDiskImageStore_SaveOpenDelete(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "images")
	store := NewDiskImageStore(dir)
	ctx := context.Background()

	ref, err := store.Save(ctx, &domain.ImageInput{
		Filename:    "poster.png",
		ContentType: "image/png",
		Data:        strings.NewReader("fake image content"),
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if filepath.Dir(ref.BlobID) != dir {
		t.Errorf("BlobID = %q, want a path under %q", ref.BlobID, dir)
	}
	if !strings.HasSuffix(ref.BlobID, "-poster.png") {
		t.Errorf("BlobID = %q, want it to keep the upload name", ref.BlobID)
	}
	if ref.Filename != "poster.png" || ref.ContentType != "image/png" {
		t.Errorf("ref = %+v, want filename and content type preserved", ref)
	}

	rc, err := store.Open(ctx, ref)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "fake image content" {
		t.Errorf("content = %q, want %q", data, "fake image content")
	}

	if err := store.Delete(ctx, ref); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(ref.BlobID); !os.IsNotExist(err) {
		t.Errorf("file still exists after Delete(), stat err = %v", err)
	}

	if _, err := store.Open(ctx, ref); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Open() after delete error = %v, want ErrNotFound", err)
	}

	// Deleting a missing file is silently ignored.
	if err := store.Delete(ctx, ref); err != nil {
		t.Errorf("second Delete() error = %v, want nil", err)
	}
}

func TestDiskImageStore_SameNameDoesNotCollide(t *testing.T) {
	store := NewDiskImageStore(t.TempDir())
	ctx := context.Background()

	first, err := store.Save(ctx, &domain.ImageInput{Filename: "poster.png", Data: strings.NewReader("one")})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	second, err := store.Save(ctx, &domain.ImageInput{Filename: "poster.png", Data: strings.NewReader("two")})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if first.BlobID == second.BlobID {
		t.Fatalf("both uploads stored at %q", first.BlobID)
	}
}

func TestDiskImageStore_StripsDirectoriesFromFilename(t *testing.T) {
	dir := t.TempDir()
	store := NewDiskImageStore(dir)

	ref, err := store.Save(context.Background(), &domain.ImageInput{
		Filename: "../../etc/poster.png",
		Data:     strings.NewReader("x"),
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if filepath.Dir(ref.BlobID) != dir {
		t.Errorf("BlobID = %q escapes %q", ref.BlobID, dir)
	}
}

func TestDiskImageStore_SaveWithoutData(t *testing.T) {
	store := NewDiskImageStore(t.TempDir())

	if _, err := store.Save(context.Background(), &domain.ImageInput{Filename: "poster.png"}); err == nil {
		t.Error("Save() expected error for missing content")
	}
}
