package auth

import (
	"errors"
	"time"

	"go-pos-books/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is who is calling: injected by the auth middleware on every request.
type Identity struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	BranchID uint   `json:"branch_id"`
	FullName string `json:"full_name"`
}

func (i Identity) IsAttendant() bool { return i.Role == models.RoleAttendant }

// HasRole reports whether the identity holds any of roles.
func (i Identity) HasRole(roles ...string) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

func IdentityOf(u models.User) Identity {
	return Identity{ID: u.ID, Username: u.Username, Role: u.Role, BranchID: u.BranchID, FullName: u.FullName}
}

// Claims defines what is inside the token (The "ID Card")
type Claims struct {
	Identity
	jwt.RegisteredClaims
}

// Issuer signs and checks tokens with one HMAC secret.
type Issuer struct {
	key []byte
	ttl time.Duration
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{key: []byte(secret), ttl: ttl}
}

// GenerateToken creates a signed JWT for a user
func (i *Issuer) GenerateToken(id Identity) (string, error) {
	claims := &Claims{
		Identity: id,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.key)
}

// ValidateToken checks if a token is fake or expired
func (i *Issuer) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return i.key, nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}
