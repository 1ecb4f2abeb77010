// Package session resolves the authenticated user from the signed
// session token the backend issued. The client never handles
// credentials; the token is the whole auth surface.
package session

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

type UserToken struct {
	UserID int64 `json:"userID"`
	jwt.RegisteredClaims
}

// Session is the ambient auth context: the current user id that scopes
// per-user fetches.
type Session struct {
	UserID int64
	Token  string
}

// Parse verifies the token signature and expiry and extracts the user
// id. HS512, same shape the backend signs.
func Parse(secret string, tokenString string) (*Session, error) {
	var claims UserToken

	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS512 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("session token is invalid")
	}
	if claims.UserID == 0 {
		return nil, fmt.Errorf("session token carries no user id")
	}

	return &Session{UserID: claims.UserID, Token: tokenString}, nil
}
