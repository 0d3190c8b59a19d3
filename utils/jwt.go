package utils

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// GenerateJWT signs an HS256 token carrying the userId claim.
func GenerateJWT(secret string, userID uint, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": userID,
		"exp":    time.Now().Add(ttl).Unix(),
	})
	return token.SignedString([]byte(secret))
}

// ParseJWT validates an HS256 token and returns its userId claim.
func ParseJWT(secret, tokenString string) (uint, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidToken
	}

	switch id := claims["userId"].(type) {
	case float64: // JSON numbers decode as float64
		if id <= 0 || id != float64(uint(id)) {
			return 0, fmt.Errorf("%w: bad userId", ErrInvalidToken)
		}
		return uint(id), nil
	case string:
		n, err := strconv.ParseUint(id, 10, 64)
		if err != nil || n == 0 {
			return 0, fmt.Errorf("%w: bad userId", ErrInvalidToken)
		}
		return uint(n), nil
	}
	return 0, fmt.Errorf("%w: userId claim missing", ErrInvalidToken)
}
