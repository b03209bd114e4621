package models

import "github.com/golang-jwt/jwt/v5"

// UserClaims carries the authenticated identity inside a JWT. The ledger
// trusts UserID as-is; no credential handling happens past the auth service.
type UserClaims struct {
	jwt.RegisteredClaims
	UserID       uint   `json:"user_id"`
	Email        string `json:"email"`
	TokenVersion int    `json:"token_version"`
}
