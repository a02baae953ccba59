package auth

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Rupe88/japan-project/pkg/tokens"
	userTypes "github.com/Rupe88/japan-project/pkg/user-management/types"
)

// ErrUserNotFound is the tokens package sentinel so callers can match it with
// errors.Is regardless of which layer they imported.
var ErrUserNotFound = tokens.ErrAccountNotFound

func (dbService *AuthDBService) CreateIndexForUsers() error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_, err := dbService.collectionUsers().Indexes().CreateMany(
		ctx, []mongo.IndexModel{
			{
				Keys: bson.D{
					{Key: "email", Value: 1},
				},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys: bson.D{
					{Key: "timestamps.createdAt", Value: 1},
				},
			},
		},
	)
	return err
}

func (dbService *AuthDBService) AddUser(user userTypes.User) (string, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	user.Timestamps.CreatedAt = time.Now().Unix()
	user.Timestamps.UpdatedAt = time.Now().Unix()

	res, err := dbService.collectionUsers().InsertOne(ctx, user)
	if err != nil {
		return "", err
	}
	id := res.InsertedID.(primitive.ObjectID)
	return id.Hex(), nil
}

func (dbService *AuthDBService) GetUserByEmail(email string) (userTypes.User, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	var user userTypes.User
	err := dbService.collectionUsers().FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return user, ErrUserNotFound
		}
		return user, err
	}
	return user, nil
}

func (dbService *AuthDBService) GetUser(userID string) (userTypes.User, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return userTypes.User{}, err
	}

	var user userTypes.User
	err = dbService.collectionUsers().FindOne(ctx, bson.M{"_id": _id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return user, ErrUserNotFound
		}
		return user, err
	}
	return user, nil
}

func (dbService *AuthDBService) UpdateUser(userID string, update bson.M) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return err
	}

	res, err := dbService.collectionUsers().UpdateOne(ctx, bson.M{"_id": _id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount < 1 {
		return ErrUserNotFound
	}
	return nil
}

func (dbService *AuthDBService) MarkUserEmailVerified(userID string) error {
	return dbService.UpdateUser(userID, bson.M{
		"$set": bson.M{
			"emailVerified":        true,
			"timestamps.updatedAt": time.Now().Unix(),
		},
	})
}

func (dbService *AuthDBService) UpdateUserLastLogin(userID string) error {
	return dbService.UpdateUser(userID, bson.M{
		"$set": bson.M{
			"timestamps.lastLogin": time.Now().Unix(),
		},
	})
}

func (dbService *AuthDBService) UpdateUserPassword(userID string, passwordHash string) error {
	return dbService.UpdateUser(userID, bson.M{
		"$set": bson.M{
			"password":             passwordHash,
			"timestamps.updatedAt": time.Now().Unix(),
		},
	})
}
