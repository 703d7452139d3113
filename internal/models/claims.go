package models

import "github.com/dgrijalva/jwt-go"

// Claims is the verified identity carried by a session token.
type Claims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	jwt.StandardClaims
}

// IsAdmin reports whether the claim passes the role gate.
func (c *Claims) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}
