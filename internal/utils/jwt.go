package utils // package utils provides token helpers shared by the server and tooling

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// NewAdminToken builds and signs an HS256 JWT carrying an ADMIN role
// claim. The service never issues tokens over HTTP — administrators
// mint them with the admintoken command and the shared secret. The
// claims are the standard set the AdminAuth middleware checks:
// subject (sub), role, expiration (exp) and issued at (iat).
func NewAdminToken(secret, subject string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": "ADMIN",
		"exp":  now.Add(ttl).Unix(),
		"iat":  now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}
