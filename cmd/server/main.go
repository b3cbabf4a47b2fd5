package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dfryer1193/gomovies/internal/middleware"
	"github.com/dfryer1193/gomovies/internal/rest"
	"github.com/dfryer1193/gomovies/movie/application"
	"github.com/dfryer1193/gomovies/movie/domain"
	"github.com/dfryer1193/gomovies/movie/persistence"
	"github.com/dfryer1193/gomovies/shared/config"
	"github.com/dfryer1193/gomovies/shared/db/mongo"
	"github.com/dfryer1193/gomovies/shared/db/sqlite"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "gomovies",
	Short: "Serves a CRUD API for movies and their poster images",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		setupLogging(cfg)
		return run(cmd.Context(), cfg)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("Server exited with error")
	}
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Log.Level))
	if err != nil {
		log.Warn().Str("level", cfg.Log.Level).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Log.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// closer is released in reverse order on shutdown.
type closer func(ctx context.Context) error

func run(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var closers []closer
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to release resource")
			}
		}
	}()

	repo, mongoDB, err := openRepository(ctx, cfg, &closers)
	if err != nil {
		return err
	}

	if cfg.Cache.RedisAddress != "" {
		cache, err := persistence.NewRedisMovieCache(ctx, cfg.Cache.RedisAddress, cfg.Cache.TTL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		closers = append(closers, func(context.Context) error { return cache.Close() })
		repo = persistence.NewCachedMovieRepository(repo, cache)
		log.Info().Str("address", cfg.Cache.RedisAddress).Dur("ttl", cfg.Cache.TTL).Msg("Movie cache enabled")
	}

	images, err := openImageStore(cfg, mongoDB)
	if err != nil {
		return err
	}

	movieService := application.NewMovieService(repo, images, cfg.Images.MaxSizeBytes)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.LoggingMiddleware())
	router.Use(gin.CustomRecovery(middleware.HandlePanics()))
	rest.NewApi(router, movieService)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("driver", cfg.Database.Driver).
			Str("imageMode", cfg.Images.Mode).
			Msg("Starting server on port :" + fmt.Sprint(cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case <-quit:
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
	}

	log.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	log.Info().Msg("Server stopped")
	return nil
}

// openRepository returns the configured record store. The Mongo connection is
// also returned so a GridFS image store can share it.
func openRepository(ctx context.Context, cfg *config.Config, closers *[]closer) (domain.MovieRepository, *mongo.MongoDB, error) {
	switch cfg.Database.Driver {
	case config.DriverMongo:
		mdb := mongo.NewMongoDB(&mongo.MongoConfig{
			URI:               cfg.Database.Mongo.URI,
			Database:          cfg.Database.Mongo.Database,
			PasswordSecretARN: cfg.Database.Mongo.PasswordSecretARN,
			Region:            cfg.Database.Mongo.Region,
		})
		if err := mdb.Connect(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		*closers = append(*closers, mdb.Close)

		collection := mdb.Database().Collection(cfg.Database.Mongo.Collection)
		return persistence.NewMongoMovieRepository(collection), mdb, nil

	default:
		sdb := sqlite.NewSQLiteDB(&sqlite.SQLiteConfig{Path: cfg.Database.SQLite.Path})
		if err := sdb.Connect(); err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		*closers = append(*closers, func(context.Context) error { return sdb.Close() })

		return persistence.NewSQLiteMovieRepository(sdb.DB()), nil, nil
	}
}

func openImageStore(cfg *config.Config, mdb *mongo.MongoDB) (domain.ImageStore, error) {
	switch cfg.Images.Mode {
	case config.ImageModeURL:
		return persistence.URLImageStore{}, nil
	case config.ImageModeGridFS:
		if mdb == nil {
			return nil, fmt.Errorf("gridfs images need a mongo connection")
		}
		return persistence.NewGridFSImageStore(mdb.Database(), cfg.Images.Bucket)
	case config.ImageModeS3:
		return persistence.NewS3ImageStore(cfg.Images.S3.Region, cfg.Images.S3.Bucket, cfg.Images.S3.Prefix)
	default:
		return persistence.NewDiskImageStore(cfg.Images.Dir), nil
	}
}
