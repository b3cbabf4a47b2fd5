package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/dfryer1193/gomovies/movie/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var _ domain.MovieRepository = (*MongoMovieRepository)(nil)

// MongoMovieRepository implements domain.MovieRepository on a MongoDB collection.
type MongoMovieRepository struct {
	movies *mongo.Collection
}

func NewMongoMovieRepository(movies *mongo.Collection) *MongoMovieRepository {
	return &MongoMovieRepository{
		movies: movies,
	}
}

// movieDocument is the stored shape of a movie.
type movieDocument struct {
	ID      primitive.ObjectID `bson:"_id,omitempty"`
	Name    string             `bson:"name"`
	Summary *string            `bson:"summary"`
	Img     *imageDocument     `bson:"img"`
}

type imageDocument struct {
	FileID      string `bson:"file_id"`
	Filename    string `bson:"filename"`
	ContentType string `bson:"content_type"`
}

func (r *MongoMovieRepository) Insert(ctx context.Context, m *domain.Movie) (string, error) {
	if m == nil {
		return "", fmt.Errorf("movie cannot be nil")
	}

	doc := movieDocument{
		Name:    m.Name,
		Summary: m.Summary,
		Img:     toImageDocument(m.Image),
	}

	result, err := r.movies.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to insert movie: %w", err)
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", result.InsertedID)
	}

	return oid.Hex(), nil
}

func (r *MongoMovieRepository) Get(ctx context.Context, id string) (*domain.Movie, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a valid id", domain.ErrNotFound, id)
	}

	var doc movieDocument
	err = r.movies.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get movie: %w", err)
	}

	return doc.toDomain(), nil
}

func (r *MongoMovieRepository) List(ctx context.Context) ([]*domain.Movie, error) {
	cursor, err := r.movies.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list movies: %w", err)
	}
	defer cursor.Close(ctx)

	movies := []*domain.Movie{}
	for cursor.Next(ctx) {
		var doc movieDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode movie: %w", err)
		}
		movies = append(movies, doc.toDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return movies, nil
}

func (r *MongoMovieRepository) Update(ctx context.Context, id string, patch *domain.MoviePatch) (domain.UpdateResult, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.UpdateResult{}, nil
	}

	set := bson.M{}
	if patch != nil {
		if patch.Name != nil {
			set["name"] = *patch.Name
		}
		if patch.Summary != nil {
			set["summary"] = *patch.Summary
		}
		if patch.Image != nil {
			set["img"] = toImageDocument(patch.Image)
		}
	}

	if len(set) == 0 {
		count, err := r.movies.CountDocuments(ctx, bson.M{"_id": oid})
		if err != nil {
			return domain.UpdateResult{}, fmt.Errorf("failed to check movie existence: %w", err)
		}
		return domain.UpdateResult{Matched: count > 0}, nil
	}

	result, err := r.movies.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return domain.UpdateResult{}, fmt.Errorf("failed to update movie: %w", err)
	}

	return domain.UpdateResult{
		Matched:  result.MatchedCount > 0,
		Modified: result.ModifiedCount > 0,
	}, nil
}

func (r *MongoMovieRepository) Delete(ctx context.Context, id string) (int64, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return 0, nil
	}

	result, err := r.movies.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return 0, fmt.Errorf("failed to delete movie: %w", err)
	}

	return result.DeletedCount, nil
}

func toImageDocument(ref *domain.ImageRef) *imageDocument {
	if ref == nil {
		return nil
	}
	return &imageDocument{
		FileID:      ref.BlobID,
		Filename:    ref.Filename,
		ContentType: ref.ContentType,
	}
}

func (d *movieDocument) toDomain() *domain.Movie {
	m := &domain.Movie{
		ID:      d.ID.Hex(),
		Name:    d.Name,
		Summary: d.Summary,
	}

	if d.Img != nil {
		m.Image = &domain.ImageRef{
			BlobID:      d.Img.FileID,
			Filename:    d.Img.Filename,
			ContentType: d.Img.ContentType,
		}
	}

	return m
}
