package rest

import (
	"net/http"

	"github.com/dfryer1193/gomovies/api"
	"github.com/dfryer1193/gomovies/movie/application"
	"github.com/gin-gonic/gin"
)

func NewApi(router *gin.Engine, movies *application.MovieService) {
	router.HandleMethodNotAllowed = true
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, api.ErrorResponse{Detail: "Not found"})
	})
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, api.ErrorResponse{Detail: "Method not allowed"})
	})

	router.GET("/healthz", GetHealth)

	h := NewMoviesHandler(movies)
	moviesGroup := router.Group("/movies")
	{
		moviesGroup.POST("", h.CreateMovie)
		moviesGroup.GET("", h.ListMovies)
		moviesGroup.GET("/:id", h.GetMovie)
		moviesGroup.PUT("/:id", h.UpdateMovie)
		moviesGroup.DELETE("/:id", h.DeleteMovie)
		moviesGroup.GET("/:id/image", h.GetMovieImage)
	}
}

func GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, api.StatusResponse{Status: "ok"})
}
