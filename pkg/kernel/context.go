package kernel

// ============================================================================
// Context Types - Tipos para context.Context
// ============================================================================

// AuthContext is the resolved identity attached to a request by the
// session authenticator (C2).
type AuthContext struct {
	UserID        UserID   `json:"user_id"`
	Email         string   `json:"email"`
	Name          string   `json:"name"`
	Department    string   `json:"department"`
	Groups        []string `json:"groups"`
	IsAdminUser   bool     `json:"is_admin"`
	IsSuperAdmin  bool     `json:"is_super_admin"`
}

// ============================================================================
// Validation Methods
// ============================================================================

// IsValid reports whether the context carries a resolved user.
func (ac *AuthContext) IsValid() bool {
	return ac != nil && !ac.UserID.IsEmpty()
}

// IsAdmin reports whether this user may use admin-surface endpoints.
func (ac *AuthContext) IsAdmin() bool {
	return ac != nil && (ac.IsAdminUser || ac.IsSuperAdmin)
}

// ============================================================================
// Context Keys
// ============================================================================

type ContextKey string

const (
	// AuthContextKey stores *AuthContext in context.Context / fiber.Locals.
	AuthContextKey ContextKey = "auth_context"

	// UserContextKey stores UserID in context.Context.
	UserContextKey ContextKey = "user_id"

	// RequestIDKey stores the request correlation id.
	RequestIDKey ContextKey = "request_id"
)
