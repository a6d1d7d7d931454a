package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Role is the kind of caller a token was issued to.
type Role string

const (
	RoleStaff Role = "staff"
	RoleUser  Role = "user"
	// RoleGateway is the chat bot front end. It may act on behalf of any actor.
	RoleGateway Role = "gateway"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleStaff, RoleUser, RoleGateway:
		return true
	default:
		return false
	}
}

// TokenManager issues and validates HS256 actor tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager builds a manager. A non-positive ttl defaults to one hour.
func NewTokenManager(secret string, ttlMinutes int) *TokenManager {
	if ttlMinutes <= 0 {
		ttlMinutes = 60
	}
	return &TokenManager{
		secret: []byte(secret),
		ttl:    time.Duration(ttlMinutes) * time.Minute,
		now:    time.Now,
	}
}

// Claims is the JWT payload. Subject carries the chat platform user id.
type Claims struct {
	Role    Role   `json:"role"`
	GuildID string `json:"guild_id,omitempty"`
	jwt.RegisteredClaims
}

// Issue signs a token for actorID.
func (tm *TokenManager) Issue(actorID string, role Role, guildID string) (string, time.Time, error) {
	if actorID == "" {
		return "", time.Time{}, errors.New("actor id required")
	}
	if !role.IsValid() {
		return "", time.Time{}, errors.New("unknown role")
	}

	issuedAt := tm.now()
	expiresAt := issuedAt.Add(tm.ttl)
	claims := &Claims{
		Role:    role,
		GuildID: guildID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actorID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Parse validates the signature and expiry and returns the claims.
func (tm *TokenManager) Parse(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	}, jwt.WithTimeFunc(tm.now))
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Subject == "" || !claims.Role.IsValid() {
		return nil, errors.New("token missing subject or role")
	}
	return claims, nil
}
