package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type VerificationCodeKind string

const (
	VERIFICATION_CODE_KIND_EMAIL_VERIFY   VerificationCodeKind = "EMAIL_VERIFY"
	VERIFICATION_CODE_KIND_PASSWORD_RESET VerificationCodeKind = "PASSWORD_RESET"
)

// VerificationCode is a short-lived one-time code sent by email. Used codes
// are kept for a short audit window and removed by the cleanup job.
type VerificationCode struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	AccountID string               `bson:"accountID" json:"accountID"`
	Email     string               `bson:"email" json:"email"`
	Code      string               `bson:"code" json:"-"`
	Kind      VerificationCodeKind `bson:"kind" json:"kind"`
	ExpiresAt time.Time            `bson:"expiresAt" json:"expiresAt"`
	IsUsed    bool                 `bson:"isUsed" json:"isUsed"`
	CreatedAt time.Time            `bson:"createdAt" json:"createdAt"`
}
