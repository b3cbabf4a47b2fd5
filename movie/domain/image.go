package domain

import (
	"context"
	"io"
)

// ImageKind selects how a movie's image is kept and how it is shown on the wire.
type ImageKind string

const (
	// ImageKindURL keeps only an external link.
	ImageKindURL ImageKind = "url"
	// ImageKindDisk writes uploads to a local directory and references them by path.
	ImageKindDisk ImageKind = "disk"
	// ImageKindGridFS stores uploads in a GridFS bucket.
	ImageKindGridFS ImageKind = "gridfs"
	// ImageKindS3 stores uploads in an S3 bucket.
	ImageKindS3 ImageKind = "s3"
)

// ImageRef points at a stored image. BlobID is a URL, a file path or a store
// identifier depending on the ImageKind of the store that produced it.
type ImageRef struct {
	BlobID      string
	Filename    string
	ContentType string
}

// ImageInput is an image supplied by a client: either a URL or an upload.
type ImageInput struct {
	URL string

	Filename    string
	ContentType string
	Size        int64
	Data        io.Reader
}

// IsUpload reports whether the input carries bytes rather than a link.
func (in *ImageInput) IsUpload() bool {
	return in != nil && in.Data != nil
}

// ImageStore keeps image bytes outside of the movie records.
type ImageStore interface {
	Kind() ImageKind

	// Save stores the image and returns a reference to it.
	Save(ctx context.Context, in *ImageInput) (*ImageRef, error)

	// Open returns the stored bytes. ErrNotFound if the blob is gone.
	Open(ctx context.Context, ref *ImageRef) (io.ReadCloser, error)

	// Delete releases the blob behind ref.
	Delete(ctx context.Context, ref *ImageRef) error
}
