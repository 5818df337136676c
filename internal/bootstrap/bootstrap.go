// Package bootstrap builds the process-wide dependencies shared by the
// server and the seeder.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/qcom/authapi/internal/config"
	"github.com/qcom/authapi/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func NewLogger(cfg *config.ServerConfig) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.WithField("log_level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// OpenUserStore connects the user store selected by STORE_DRIVER. The
// returned close func releases its connections.
func OpenUserStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (repository.UserStore, func() error, error) {
	switch cfg.Store.Driver {
	case config.StoreMySQL:
		db, err := repository.OpenMySQL(ctx, cfg.MySQL.DSN)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("MySQL connection established")
		return repository.NewMySQLUserRepository(db, logger), db.Close, nil
	default:
		client, err := initDynamoDB(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewUserRepository(client, cfg.DynamoDB.TableName, logger), func() error { return nil }, nil
	}
}

func initDynamoDB(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*dynamodb.Client, error) {
	var awsCfg aws.Config
	var err error

	if cfg.DynamoDB.Endpoint != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.DynamoDB.Region),
			awsconfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
				func(service, region string, options ...interface{}) (aws.Endpoint, error) {
					return aws.Endpoint{
						URL:           cfg.DynamoDB.Endpoint,
						SigningRegion: cfg.DynamoDB.Region,
					}, nil
				})),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.DynamoDB.Region))
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg)
	logger.Info("DynamoDB client initialized")
	return client, nil
}

func OpenRedis(ctx context.Context, cfg *config.RedisConfig, logger *logrus.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Endpoint,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Endpoint, err)
	}

	logger.WithField("endpoint", cfg.Endpoint).Info("Redis client initialized")
	return client, nil
}
