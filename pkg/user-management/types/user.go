package types

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	Email         string `bson:"email" json:"email"`
	Password      string `bson:"password" json:"-"`
	EmailVerified bool   `bson:"emailVerified" json:"emailVerified"`

	PhoneNumber   string `bson:"phoneNumber,omitempty" json:"phoneNumber,omitempty"`
	PhoneVerified bool   `bson:"phoneVerified" json:"phoneVerified"`

	Timestamps Timestamps `bson:"timestamps" json:"timestamps"`
}

type Timestamps struct {
	CreatedAt int64 `bson:"createdAt" json:"createdAt"`
	UpdatedAt int64 `bson:"updatedAt" json:"updatedAt"`
	LastLogin int64 `bson:"lastLogin" json:"lastLogin"`
}
