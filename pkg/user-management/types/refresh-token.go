package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RefreshTokenRecord is the persisted counterpart of an issued refresh token.
// A record is only ever created and deleted, never updated in place; the
// absence of a record is the single signal that a token can no longer be used.
type RefreshTokenRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AccountID string             `bson:"accountID" json:"accountID"`
	Token     string             `bson:"token" json:"-"`
	IssuedAt  time.Time          `bson:"issuedAt" json:"issuedAt"`
	ExpiresAt time.Time          `bson:"expiresAt" json:"expiresAt"`
}
