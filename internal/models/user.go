package models

// UserRole represents the organizational roles gating workflow stages.
type UserRole string

const (
	RoleFiler      UserRole = "FILER"
	RoleSupervisor UserRole = "SUPERVISOR"
	RoleAuditor    UserRole = "AUDITOR"
	RoleAccounting UserRole = "ACCOUNTING"
	RoleTreasury   UserRole = "TREASURY"
	RoleAdvisor    UserRole = "ADVISOR"
	RoleRendition  UserRole = "RENDITION"
	RoleAdmin      UserRole = "ADMIN"
)

// JWTClaims is the caller identity extracted from a validated token.
// The service never authenticates; it only authorizes against these
// already-issued claims.
type JWTClaims struct {
	UserID   string   `json:"sub"`
	FullName string   `json:"name"`
	Role     UserRole `json:"role"`
}

// IsAdmin reports whether the caller may exercise administrative overrides.
func (c *JWTClaims) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
