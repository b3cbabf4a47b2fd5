package persistence

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dfryer1193/gomovies/movie/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ domain.ImageStore = (*GridFSImageStore)(nil)

// GridFSImageStore keeps uploads in a GridFS bucket next to the movie
// collection. The BlobID is the hex form of the GridFS file ObjectID.
type GridFSImageStore struct {
	bucket *gridfs.Bucket
}

// NewGridFSImageStore opens the named bucket; an empty name uses the driver default "fs".
func NewGridFSImageStore(database *mongo.Database, bucketName string) (*GridFSImageStore, error) {
	opts := options.GridFSBucket()
	if bucketName != "" {
		opts.SetName(bucketName)
	}

	bucket, err := gridfs.NewBucket(database, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open GridFS bucket: %w", err)
	}

	return &GridFSImageStore{bucket: bucket}, nil
}

func (s *GridFSImageStore) Kind() domain.ImageKind {
	return domain.ImageKindGridFS
}

// Save and Open have no context-aware variant in the v1 driver, so the
// request deadline is applied to the individual stream instead.
func (s *GridFSImageStore) Save(ctx context.Context, in *domain.ImageInput) (*domain.ImageRef, error) {
	if !in.IsUpload() {
		return nil, fmt.Errorf("image upload has no content")
	}

	uploadOpts := options.GridFSUpload().SetMetadata(bson.D{
		{Key: "content_type", Value: in.ContentType},
	})

	stream, err := s.bucket.OpenUploadStream(in.Filename, uploadOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open GridFS upload: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := stream.SetWriteDeadline(deadline); err != nil {
			_ = stream.Abort()
			return nil, fmt.Errorf("failed to set GridFS write deadline: %w", err)
		}
	}

	if _, err := io.Copy(stream, in.Data); err != nil {
		_ = stream.Abort()
		return nil, fmt.Errorf("failed to upload image to GridFS: %w", err)
	}

	if err := stream.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish GridFS upload: %w", err)
	}

	fileID, ok := stream.FileID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("unexpected GridFS file id type %T", stream.FileID)
	}

	return &domain.ImageRef{
		BlobID:      fileID.Hex(),
		Filename:    in.Filename,
		ContentType: in.ContentType,
	}, nil
}

func (s *GridFSImageStore) Open(ctx context.Context, ref *domain.ImageRef) (io.ReadCloser, error) {
	fileID, err := primitive.ObjectIDFromHex(ref.BlobID)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a GridFS file id", domain.ErrNotFound, ref.BlobID)
	}

	stream, err := s.bucket.OpenDownloadStream(fileID)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, fmt.Errorf("%w: GridFS file %s", domain.ErrNotFound, ref.BlobID)
		}
		return nil, fmt.Errorf("failed to open GridFS file: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := stream.SetReadDeadline(deadline); err != nil {
			_ = stream.Close()
			return nil, fmt.Errorf("failed to set GridFS read deadline: %w", err)
		}
	}

	return stream, nil
}

// Delete treats a file that is already gone as deleted.
func (s *GridFSImageStore) Delete(ctx context.Context, ref *domain.ImageRef) error {
	fileID, err := primitive.ObjectIDFromHex(ref.BlobID)
	if err != nil {
		return fmt.Errorf("%q is not a GridFS file id: %w", ref.BlobID, err)
	}

	if err := s.bucket.DeleteContext(ctx, fileID); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
		return fmt.Errorf("failed to delete GridFS file %s: %w", ref.BlobID, err)
	}

	return nil
}
