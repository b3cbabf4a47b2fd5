package persistence

import (
	"context"
	"fmt"
	"io"

	"github.com/dfryer1193/gomovies/movie/domain"
)

var _ domain.ImageStore = URLImageStore{}

// URLImageStore keeps nothing: the image is an external link stored on the
// movie record itself.
type URLImageStore struct{}

func (URLImageStore) Kind() domain.ImageKind {
	return domain.ImageKindURL
}

func (URLImageStore) Save(_ context.Context, in *domain.ImageInput) (*domain.ImageRef, error) {
	if in == nil || in.URL == "" {
		return nil, fmt.Errorf("image URL is empty")
	}
	return &domain.ImageRef{BlobID: in.URL}, nil
}

func (URLImageStore) Open(_ context.Context, ref *domain.ImageRef) (io.ReadCloser, error) {
	return nil, fmt.Errorf("image %s is an external link and has no stored content", ref.BlobID)
}

func (URLImageStore) Delete(context.Context, *domain.ImageRef) error {
	return nil
}
