package rest

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dfryer1193/gomovies/api"
	"github.com/dfryer1193/gomovies/movie/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// writeError translates a service error into a status and a detail body.
// Client errors echo the message; anything else is logged and hidden.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Detail: "Movie not found"})
	case errors.Is(err, domain.ErrInvalidImageFormat), errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Detail: err.Error()})
	case errors.Is(err, domain.ErrBlobDeleteFailed):
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Movie deleted but its image was not")
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Detail: "Movie deleted but its image could not be removed"})
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Detail: "Internal server error"})
	}
}

// writeDecodeError reports a body that could not be read as a bad request,
// or as too large when it ran past the size cap.
func writeDecodeError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, api.ErrorResponse{
			Detail: fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit),
		})
		return
	}
	badRequest(c, err.Error())
}

func badRequest(c *gin.Context, detail string) {
	c.JSON(http.StatusBadRequest, api.ErrorResponse{Detail: detail})
}
