package jwt

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/carvalholeo/sistema-caronas-sub000/internal/domain/user"
)

// Claims is the canonical JWT claims payload issued by the auth
// collaborator: a user identity plus its resolved permission list.
type Claims struct {
	Permissions []string `json:"permissions"`
	jwtlib.RegisteredClaims
}

var _ jwtlib.Claims = (*Claims)(nil)

// NewUserClaims constructs end-user claims with the given permission list.
func NewUserClaims(userID string, perms []string, ttl time.Duration) *Claims {
	now := time.Now().UTC()
	return &Claims{
		Permissions: perms,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}
}

// Capabilities resolves the permission strings into a typed capability set.
func (c *Claims) Capabilities() user.CapabilitySet {
	return user.NewCapabilitySet(c.Permissions)
}
