package utils

import (
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
)

type JwtCustomClaim struct {
	UserId string `json:"user_id"`
	BarId  string `json:"bar_id"`
	Role   string `json:"role"`
	Name   string `json:"name"`
	jwt.StandardClaims
}

// TokenIssuer signs and validates session tokens with one shared secret.
type TokenIssuer struct {
	secret   []byte
	lifespan time.Duration
}

func NewTokenIssuer(secret string, lifespan time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), lifespan: lifespan}
}

func (ti *TokenIssuer) Generate(userId, barId, role, name string) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &JwtCustomClaim{
		UserId: userId,
		BarId:  barId,
		Role:   role,
		Name:   name,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: now.Add(ti.lifespan).Unix(),
			IssuedAt:  now.Unix(),
		},
	})
	return t.SignedString(ti.secret)
}

func (ti *TokenIssuer) Validate(token string) (*JwtCustomClaim, error) {
	parsed, err := jwt.ParseWithClaims(token, &JwtCustomClaim{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("there's a problem with the signing method")
		}
		return ti.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claim, ok := parsed.Claims.(*JwtCustomClaim)
	if !ok || !parsed.Valid {
		return nil, ErrorUnauthorized
	}
	return claim, nil
}

func HashPassword(s string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(s), bcrypt.DefaultCost)
}

func ComparePassword(hashed string, normal string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(normal))
}
