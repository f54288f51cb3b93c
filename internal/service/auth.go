package service

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rocketscienceinc/oxroom-backend/internal/apperror"
)

const tokenLifetime = 24 * time.Hour

type AuthService interface {
	GenerateToken(accountID int) (string, error)
	ParseToken(token string) (int, error)
}

type authService struct {
	secretKey []byte
	now       func() time.Time
}

func NewAuthService(secretKey string) AuthService {
	return &authService{
		secretKey: []byte(secretKey),
		now:       time.Now,
	}
}

func (that *authService) GenerateToken(accountID int) (string, error) {
	now := that.now()

	claims := jwt.RegisteredClaims{
		Subject:   strconv.Itoa(accountID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(that.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

func (that *authService) ParseToken(tokenString string) (int, error) {
	claims := &jwt.RegisteredClaims{}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return that.secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(that.now))
	if err != nil {
		return 0, errors.Join(apperror.ErrInvalidToken, err)
	}

	accountID, err := strconv.Atoi(claims.Subject)
	if err != nil {
		return 0, fmt.Errorf("%w: subject %q", apperror.ErrInvalidToken, claims.Subject)
	}

	return accountID, nil
}
