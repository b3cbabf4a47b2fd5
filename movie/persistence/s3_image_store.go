package persistence

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/dfryer1193/gomovies/movie/domain"
	"github.com/google/uuid"
)

var _ domain.ImageStore = (*S3ImageStore)(nil)

// S3ImageStore keeps uploads as objects in one bucket. The BlobID is the object key.
type S3ImageStore struct {
	s3Client   *s3.S3
	uploader   *s3manager.Uploader
	bucketName string
	prefix     string
}

// NewS3ImageStore creates an S3 image store; keys are written under prefix.
func NewS3ImageStore(region, bucketName, prefix string) (*S3ImageStore, error) {
	if bucketName == "" {
		return nil, fmt.Errorf("S3 bucket name is required")
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3ImageStore{
		s3Client:   s3.New(sess),
		uploader:   s3manager.NewUploader(sess),
		bucketName: bucketName,
		prefix:     prefix,
	}, nil
}

func (s *S3ImageStore) Kind() domain.ImageKind {
	return domain.ImageKindS3
}

func (s *S3ImageStore) Save(ctx context.Context, in *domain.ImageInput) (*domain.ImageRef, error) {
	if !in.IsUpload() {
		return nil, fmt.Errorf("image upload has no content")
	}

	key := formatS3Key(s.prefix, uuid.NewString(), in.Filename)

	input := &s3manager.UploadInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
		Body:   in.Data,
		Metadata: map[string]*string{
			"filename": aws.String(in.Filename),
		},
	}
	if in.ContentType != "" {
		input.ContentType = aws.String(in.ContentType)
	}

	if _, err := s.uploader.UploadWithContext(ctx, input); err != nil {
		return nil, fmt.Errorf("failed to upload image: %w", err)
	}

	return &domain.ImageRef{
		BlobID:      key,
		Filename:    in.Filename,
		ContentType: in.ContentType,
	}, nil
}

func (s *S3ImageStore) Open(ctx context.Context, ref *domain.ImageRef) (io.ReadCloser, error) {
	output, err := s.s3Client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(ref.BlobID),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, fmt.Errorf("%w: object %s", domain.ErrNotFound, ref.BlobID)
		}
		return nil, fmt.Errorf("failed to get image: %w", err)
	}

	return output.Body, nil
}

func (s *S3ImageStore) Delete(ctx context.Context, ref *domain.ImageRef) error {
	_, err := s.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(ref.BlobID),
	})
	if err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}

	return nil
}

// formatS3Key builds prefix/id-filename, dropping any directory part of the
// upload name.
func formatS3Key(prefix, id, filename string) string {
	name := id
	if base := path.Base(strings.ReplaceAll(filename, "\\", "/")); base != "." && base != "/" {
		name = id + "-" + base
	}

	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
