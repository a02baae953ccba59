package auth

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	userTypes "github.com/Rupe88/japan-project/pkg/user-management/types"
)

var ErrVerificationCodeNotFound = errors.New("verification code not found")

func (dbService *AuthDBService) CreateIndexForVerificationCodes() error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_, err := dbService.collectionVerificationCodes().Indexes().CreateMany(
		ctx, []mongo.IndexModel{
			{
				Keys: bson.D{
					{Key: "accountID", Value: 1},
					{Key: "code", Value: 1},
					{Key: "kind", Value: 1},
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

func (dbService *AuthDBService) CreateVerificationCode(code userTypes.VerificationCode) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	code.CreatedAt = time.Now()
	_, err := dbService.collectionVerificationCodes().InsertOne(ctx, code)
	return err
}

// ConsumeVerificationCode marks an unused, unexpired code as used and returns
// it. The flip from unused to used is a single findAndUpdate, so a code can be
// consumed at most once no matter how many submissions race on it.
func (dbService *AuthDBService) ConsumeVerificationCode(accountID string, code string, kind userTypes.VerificationCodeKind) (userTypes.VerificationCode, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{
		"accountID": accountID,
		"code":      code,
		"kind":      kind,
		"isUsed":    false,
		"expiresAt": bson.M{"$gte": time.Now()},
	}
	update := bson.M{"$set": bson.M{"isUsed": true}}

	var vc userTypes.VerificationCode
	err := dbService.collectionVerificationCodes().FindOneAndUpdate(ctx, filter, update).Decode(&vc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return vc, ErrVerificationCodeNotFound
		}
		return vc, err
	}
	return vc, nil
}

// DeleteSpentVerificationCodes removes codes that are expired, and used codes
// older than the retention window.
func (dbService *AuthDBService) DeleteSpentVerificationCodes(usedRetention time.Duration) (int64, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{
		"$or": bson.A{
			bson.M{"expiresAt": bson.M{"$lt": time.Now()}},
			bson.M{
				"isUsed":    true,
				"createdAt": bson.M{"$lt": time.Now().Add(-usedRetention)},
			},
		},
	}
	res, err := dbService.collectionVerificationCodes().DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
