package model

import "github.com/golang-jwt/jwt"

// UserClaims are the JWT claims issued to dashboard users.
type UserClaims struct {
	UserName string `json:"user_name"`
	jwt.StandardClaims
}
