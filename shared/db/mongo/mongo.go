package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const pingTimeout = 10 * time.Second

type MongoConfig struct {
	URI      string
	Database string

	// PasswordSecretARN, when set, names an AWS Secrets Manager secret holding
	// the password for the user in URI.
	PasswordSecretARN string
	Region            string
}

// MongoDB owns a client connection and the database movies live in.
type MongoDB struct {
	cfg      *MongoConfig
	client   *mongo.Client
	database *mongo.Database
}

func NewMongoDB(cfg *MongoConfig) *MongoDB {
	return &MongoDB{cfg: cfg}
}

// Connect dials the deployment and pings it before returning.
func (m *MongoDB) Connect(ctx context.Context) error {
	if m.client != nil {
		return fmt.Errorf("database already connected")
	}

	clientOptions := options.Client().ApplyURI(m.cfg.URI)

	if m.cfg.PasswordSecretARN != "" {
		password, err := getPasswordFromSecretsManager(m.cfg.Region, m.cfg.PasswordSecretARN)
		if err != nil {
			return err
		}

		username, err := connstringUsername(clientOptions)
		if err != nil {
			return err
		}

		clientOptions.SetAuth(options.Credential{
			AuthSource: "admin",
			Username:   username,
			Password:   password,
		})
	}

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	log.Info().Str("database", m.cfg.Database).Msg("Connected to MongoDB")

	m.client = client
	m.database = client.Database(m.cfg.Database)
	return nil
}

// Database returns nil until Connect succeeds.
func (m *MongoDB) Database() *mongo.Database {
	return m.database
}

func (m *MongoDB) Close(ctx context.Context) error {
	if m.client == nil {
		return nil
	}

	err := m.client.Disconnect(ctx)
	m.client = nil
	m.database = nil
	return err
}

func connstringUsername(opts *options.ClientOptions) (string, error) {
	if opts.Auth == nil || opts.Auth.Username == "" {
		return "", fmt.Errorf("a username is required in the MongoDB URI when the password comes from Secrets Manager")
	}
	return opts.Auth.Username, nil
}

// getPasswordFromSecretsManager retrieves the password from AWS Secrets Manager
func getPasswordFromSecretsManager(region, secretArn string) (string, error) {
	if region == "" {
		region = "us-east-1"
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create AWS session: %w", err)
	}

	result, err := secretsmanager.New(sess).GetSecretValue(&secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretArn),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get secret value: %w", err)
	}

	if result.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", secretArn)
	}

	return *result.SecretString, nil
}
