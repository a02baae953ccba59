package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/Rupe88/japan-project/pkg/db"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// collection names
const (
	COLLECTION_NAME_USERS              = "users"
	COLLECTION_NAME_REFRESH_TOKENS     = "refreshTokens"
	COLLECTION_NAME_VERIFICATION_CODES = "verificationCodes"
)

type AuthDBService struct {
	DBClient     *mongo.Client
	timeout      int
	DBNamePrefix string
}

func NewAuthDBService(configs db.DBConfig) (*AuthDBService, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(configs.Timeout)*time.Second)
	defer cancel()

	dbClient, err := mongo.Connect(ctx,
		options.Client().ApplyURI(configs.URI),
		options.Client().SetMaxConnIdleTime(time.Duration(configs.IdleConnTimeout)*time.Second),
		options.Client().SetMaxPoolSize(configs.MaxPoolSize),
	)
	if err != nil {
		return nil, err
	}

	ctx, conCancel := context.WithTimeout(context.Background(), time.Duration(configs.Timeout)*time.Second)
	err = dbClient.Ping(ctx, nil)
	defer conCancel()

	if err != nil {
		return nil, err
	}

	authDBSc := &AuthDBService{
		DBClient:     dbClient,
		timeout:      configs.Timeout,
		DBNamePrefix: configs.DBNamePrefix,
	}

	if configs.RunIndexCreation {
		authDBSc.CreateDefaultIndexes()
	}
	return authDBSc, nil
}

func (dbService *AuthDBService) getDBName() string {
	return dbService.DBNamePrefix + "auth"
}

func (dbService *AuthDBService) getContext() (ctx context.Context, cancel context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Duration(dbService.timeout)*time.Second)
}

func (dbService *AuthDBService) collectionUsers() *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName()).Collection(COLLECTION_NAME_USERS)
}

func (dbService *AuthDBService) collectionRefreshTokens() *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName()).Collection(COLLECTION_NAME_REFRESH_TOKENS)
}

func (dbService *AuthDBService) collectionVerificationCodes() *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName()).Collection(COLLECTION_NAME_VERIFICATION_CODES)
}

func (dbService *AuthDBService) CreateDefaultIndexes() {
	if err := dbService.CreateIndexForUsers(); err != nil {
		slog.Error("failed to create indexes for users", slog.String("error", err.Error()))
	}
	if err := dbService.CreateIndexForRefreshTokens(); err != nil {
		slog.Error("failed to create indexes for refresh tokens", slog.String("error", err.Error()))
	}
	if err := dbService.CreateIndexForVerificationCodes(); err != nil {
		slog.Error("failed to create indexes for verification codes", slog.String("error", err.Error()))
	}
}
