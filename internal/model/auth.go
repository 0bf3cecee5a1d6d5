package model

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User is the minimal account record: an id and a unique username.
type User struct {
	ID        string    `json:"id" bson:"_id"`
	Username  string    `json:"username" bson:"username"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// UserClaims are JWT claims for an authenticated user
type UserClaims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// LoginRequest is the request body for login
type LoginRequest struct {
	Username string `json:"username"`
}

// LoginResponse is returned after successful login
type LoginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}
