package identity

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	// HeaderUserID carries the authenticated account id set by the gateway.
	HeaderUserID = "X-User-ID"
	// HeaderUserRole carries the account role set by the gateway.
	HeaderUserRole = "X-User-Role"

	localsKey = "identity"
)

// Role is the coarse permission level of a caller.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Identity is the opaque caller identity. Credentials are verified upstream.
type Identity struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the caller holds the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// Middleware reads the gateway headers and stores the identity in the request locals.
// Requests without a user id pass through anonymously.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := strings.TrimSpace(c.Get(HeaderUserID))
		if userID != "" {
			role := Role(strings.ToLower(strings.TrimSpace(c.Get(HeaderUserRole))))
			if role != RoleAdmin {
				role = RoleCustomer
			}
			c.Locals(localsKey, Identity{UserID: userID, Role: role})
		}
		return c.Next()
	}
}

// FromCtx returns the caller identity, if any.
func FromCtx(c *fiber.Ctx) (Identity, bool) {
	id, ok := c.Locals(localsKey).(Identity)
	return id, ok
}
