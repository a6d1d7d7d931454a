package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/did4510/Nexon/pkg/util/errorutil"
)

// RequireRole admits principals holding one of the allowed roles.
func RequireRole(allowed ...Role) fiber.Handler {
	allowedSet := make(map[Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireStaff admits staff tokens and the gateway. Whether the actor is an
// on-duty staff member of the guild is decided by the ticket service.
func RequireStaff() fiber.Handler {
	return RequireRole(RoleStaff, RoleGateway)
}

// RequireAny admits any authenticated caller.
func RequireAny() fiber.Handler {
	return RequireRole()
}
