package auth

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Rupe88/japan-project/pkg/tokens"
	userTypes "github.com/Rupe88/japan-project/pkg/user-management/types"
)

// ErrRefreshTokenNotFound is the tokens package sentinel so callers can match
// it with errors.Is regardless of which layer they imported.
var ErrRefreshTokenNotFound = tokens.ErrTokenRecordNotFound

func (dbService *AuthDBService) CreateIndexForRefreshTokens() error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_, err := dbService.collectionRefreshTokens().Indexes().CreateMany(
		ctx, []mongo.IndexModel{
			{
				Keys: bson.D{
					{Key: "token", Value: 1},
				},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys: bson.D{
					{Key: "accountID", Value: 1},
				},
			},
			{
				Keys: bson.D{
					{Key: "expiresAt", Value: 1},
				},
			},
		},
	)
	return err
}

func (dbService *AuthDBService) CreateRefreshToken(record userTypes.RefreshTokenRecord) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_, err := dbService.collectionRefreshTokens().InsertOne(ctx, record)
	return err
}

// ClaimRefreshToken removes the record for the given token value and returns
// it. The removal is a single findAndDelete, so when two rotation attempts
// race on the same token exactly one of them receives the record and the
// other gets ErrRefreshTokenNotFound.
func (dbService *AuthDBService) ClaimRefreshToken(token string) (userTypes.RefreshTokenRecord, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	var record userTypes.RefreshTokenRecord
	err := dbService.collectionRefreshTokens().FindOneAndDelete(ctx, bson.M{"token": token}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return record, ErrRefreshTokenNotFound
		}
		return record, err
	}
	return record, nil
}

// DeleteRefreshToken removes the record if it exists. Deleting an absent
// record is not an error.
func (dbService *AuthDBService) DeleteRefreshToken(token string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_, err := dbService.collectionRefreshTokens().DeleteOne(ctx, bson.M{"token": token})
	return err
}

func (dbService *AuthDBService) DeleteRefreshTokensForAccount(accountID string) (int64, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	res, err := dbService.collectionRefreshTokens().DeleteMany(ctx, bson.M{"accountID": accountID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (dbService *AuthDBService) DeleteExpiredRefreshTokens() (int64, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"expiresAt": bson.M{"$lt": time.Now()}}
	res, err := dbService.collectionRefreshTokens().DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (dbService *AuthDBService) CountActiveRefreshTokens() (int64, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"expiresAt": bson.M{"$gte": time.Now()}}
	return dbService.collectionRefreshTokens().CountDocuments(ctx, filter)
}
