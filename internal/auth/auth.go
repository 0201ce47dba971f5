package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"chat-service/internal/apperrors"
)

const tokenTTL = 7 * 24 * time.Hour

// Authenticator issues and verifies bearer tokens and hashes credentials.
// The rest of the system treats it as opaque: handlers get a token out,
// middleware and the websocket handshake get a user id back.
type Authenticator struct {
	secret []byte
}

func New(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

func (a *Authenticator) HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (a *Authenticator) CheckPassword(password, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) == nil
}

func (a *Authenticator) IssueToken(userID int64) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Verify parses a bearer token and returns the user id it was issued for.
func (a *Authenticator) Verify(tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenMalformed
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, apperrors.Unauthenticated("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, apperrors.Unauthenticated("invalid token claims")
	}

	userID, ok := claims["user_id"].(float64)
	if !ok {
		return 0, apperrors.Unauthenticated("user_id missing in token")
	}

	return int64(userID), nil
}
