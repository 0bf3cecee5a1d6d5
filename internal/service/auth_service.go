package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"riddlerush/internal/model"
	"riddlerush/internal/repository"
)

var ErrInvalidToken = errors.New("invalid or expired token")

const tokenLifetime = 7 * 24 * time.Hour

// AuthService issues and validates user tokens
type AuthService struct {
	users     repository.UserRepo
	jwtSecret []byte
}

// NewAuthService creates a new auth service
func NewAuthService(users repository.UserRepo, secret string) *AuthService {
	return &AuthService{
		users:     users,
		jwtSecret: []byte(secret),
	}
}

// Login gets or creates the user named username and returns a token.
func (s *AuthService) Login(ctx context.Context, username string) (*model.LoginResponse, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(username) > 32 {
		return nil, fmt.Errorf("%w: username must be 1-32 characters", ErrInvalidInput)
	}

	user, err := s.users.GetOrCreate(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, err
	}
	return &model.LoginResponse{
		Token:  token,
		UserID: user.ID,
	}, nil
}

// IssueToken signs a token for user.
func (s *AuthService) IssueToken(user *model.User) (string, error) {
	now := time.Now()
	claims := &model.UserClaims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateToken validates a user JWT and returns claims
func (s *AuthService) ValidateToken(tokenString string) (*model.UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.UserClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
