package domain

import "errors"

var (
	ErrNotFound           = errors.New("movie not found")
	ErrInvalidImageFormat = errors.New("invalid image format")
	ErrInvalidInput       = errors.New("invalid input")
	ErrBlobStore          = errors.New("image store failure")
	ErrBlobDeleteFailed   = errors.New("failed to delete image")
)
