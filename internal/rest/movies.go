package rest

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/dfryer1193/gomovies/api"
	"github.com/dfryer1193/gomovies/movie/application"
	"github.com/dfryer1193/gomovies/movie/domain"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const imageFormField = "image"

// multipartOverhead is the room left for form fields and part headers on top
// of the largest accepted image.
const multipartOverhead = 1 << 20

type MoviesHandler struct {
	movies *application.MovieService
}

func NewMoviesHandler(movies *application.MovieService) *MoviesHandler {
	return &MoviesHandler{movies: movies}
}

func (h *MoviesHandler) CreateMovie(c *gin.Context) {
	req, err := h.decodeMovieRequest(c)
	if err != nil {
		writeDecodeError(c, err)
		return
	}
	defer req.close()

	in := application.CreateMovieInput{
		Summary: req.summary,
		Image:   req.image,
	}
	if req.name != nil {
		in.Name = *req.name
	}

	movie, err := h.movies.Create(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.toAPI(movie))
}

func (h *MoviesHandler) ListMovies(c *gin.Context) {
	movies, err := h.movies.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]api.Movie, 0, len(movies))
	for _, m := range movies {
		out = append(out, h.toAPI(m))
	}

	c.JSON(http.StatusOK, out)
}

func (h *MoviesHandler) GetMovie(c *gin.Context) {
	movie, err := h.movies.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.toAPI(movie))
}

func (h *MoviesHandler) UpdateMovie(c *gin.Context) {
	req, err := h.decodeMovieRequest(c)
	if err != nil {
		writeDecodeError(c, err)
		return
	}
	defer req.close()

	movie, err := h.movies.Update(c.Request.Context(), c.Param("id"), application.UpdateMovieInput{
		Name:    req.name,
		Summary: req.summary,
		Image:   req.image,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.toAPI(movie))
}

func (h *MoviesHandler) DeleteMovie(c *gin.Context) {
	if err := h.movies.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, api.StatusResponse{Status: "Movie deleted"})
}

func (h *MoviesHandler) GetMovieImage(c *gin.Context) {
	ref, body, err := h.movies.OpenImage(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	if body == nil {
		c.Redirect(http.StatusFound, ref.BlobID)
		return
	}
	defer body.Close()

	contentType := ref.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", ref.Filename))
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, body); err != nil {
		log.Warn().Err(err).Str("movieID", c.Param("id")).Msg("Failed to stream image")
	}
}

func (h *MoviesHandler) toAPI(m *domain.Movie) api.Movie {
	out := api.Movie{
		ID:      m.ID,
		Name:    m.Name,
		Summary: m.Summary,
	}

	if m.Image == nil {
		return out
	}

	switch h.movies.ImageKind() {
	case domain.ImageKindURL, domain.ImageKindDisk:
		out.Img = m.Image.BlobID
	default:
		out.Img = api.ImageRef{
			FileID:      m.Image.BlobID,
			Filename:    m.Image.Filename,
			ContentType: m.Image.ContentType,
		}
	}

	return out
}

// movieRequest is a decoded create or update body. An uploaded file stays
// open until close is called.
type movieRequest struct {
	name    *string
	summary *string
	image   *domain.ImageInput
	file    multipart.File
}

func (r *movieRequest) close() {
	if r.file != nil {
		_ = r.file.Close()
	}
}

func (h *MoviesHandler) decodeMovieRequest(c *gin.Context) (*movieRequest, error) {
	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.movies.MaxImageSize()+multipartOverhead)
		return decodeMultipart(c)
	}
	return decodeJSON(c)
}

func decodeJSON(c *gin.Context) (*movieRequest, error) {
	var proto api.MovieProto
	if err := c.ShouldBindJSON(&proto); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}

	req := &movieRequest{
		name:    proto.Name,
		summary: proto.Summary,
	}
	if proto.Img != nil {
		req.image = &domain.ImageInput{URL: *proto.Img}
	}

	return req, nil
}

func decodeMultipart(c *gin.Context) (*movieRequest, error) {
	if _, err := c.MultipartForm(); err != nil {
		return nil, fmt.Errorf("invalid multipart body: %w", err)
	}

	req := &movieRequest{}

	if name, ok := c.GetPostForm("name"); ok {
		req.name = &name
	}
	if summary, ok := c.GetPostForm("summary"); ok {
		req.summary = &summary
	}
	if link, ok := c.GetPostForm("img"); ok {
		req.image = &domain.ImageInput{URL: link}
	}

	header, err := c.FormFile(imageFormField)
	if errors.Is(err, http.ErrMissingFile) {
		return req, nil
	}
	if err != nil {
		return nil, fmt.Errorf("invalid multipart body: %w", err)
	}

	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded image: %w", err)
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType, err = sniffContentType(file)
		if err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("failed to read uploaded image: %w", err)
		}
	}

	req.file = file
	req.image = &domain.ImageInput{
		Filename:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Data:        file,
	}

	return req, nil
}

// sniffContentType detects the type from the leading bytes and rewinds the file.
func sniffContentType(file multipart.File) (string, error) {
	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		return "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return mtype.String(), nil
}
