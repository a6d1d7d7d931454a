package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/did4510/Nexon/pkg/util/errorutil"
)

const (
	principalKey = "auth_principal"

	// ActorHeader names the user a gateway token acts for.
	ActorHeader = "X-Actor-ID"
)

// Principal is the authenticated caller.
type Principal struct {
	ActorID string
	Role    Role
	GuildID string
	// Via is set when a gateway token supplied ActorID through ActorHeader.
	Via string
}

// AuthMiddleware validates bearer tokens.
type AuthMiddleware struct {
	tokens *TokenManager
}

func NewAuthMiddleware(tokens *TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Handle rejects requests without a valid bearer token and stores the Principal.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.Parse(strings.TrimSpace(parts[1]))
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	principal := &Principal{ActorID: claims.Subject, Role: claims.Role, GuildID: claims.GuildID}
	if claims.Role == RoleGateway {
		if actor := strings.TrimSpace(c.Get(ActorHeader)); actor != "" {
			principal.Via = claims.Subject
			principal.ActorID = actor
		}
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

// PrincipalFromContext returns the caller stored by Handle.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	principal, ok := c.Locals(principalKey).(*Principal)
	return principal, ok && principal != nil
}
