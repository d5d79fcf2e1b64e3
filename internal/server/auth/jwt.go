// Package auth mints and verifies the HS256 access tokens handed to curators.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fieldkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the registered claims plus the curator id.
type Claims struct {
	jwt.RegisteredClaims
	CuratorID string `json:"curator_id"`
}

func GenerateToken(curatorID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		CuratorID: curatorID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetCuratorIDFromToken validates tokenString and returns its curator id.
// An expired token yields common.ErrTokenExpired, anything else unusable
// yields common.ErrInvalidToken.
func GetCuratorIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.CuratorID == "" {
		return "", common.ErrInvalidToken
	}

	return claims.CuratorID, nil
}
