package usercontext

import "github.com/gofiber/fiber/v2"

// Locals keys set by the auth middleware.
const (
	KeyUserContext   = "USER_CONTEXT"
	KeyFromProtected = "FROM_PROTECTED"
	KeyUserID        = "USER_ID"
	KeyUsername      = "USER_NAME"
	KeyIsAdmin       = "IS_ADMIN"
)

// UserContext carries the authenticated user through a request.
type UserContext struct {
	UserID     uint
	Username   string
	IsLoggedIn bool
	IsAdmin    bool
}

// GetUserContext returns the user context for the request, or a zero value
// when the request is unauthenticated.
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx, ok := c.Locals(KeyUserContext).(UserContext); ok {
		return ctx
	}
	return UserContext{}
}
