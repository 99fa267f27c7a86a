package models

// Role constants.
const (
	RoleAdmin   = "ROLE_ADMIN"
	RoleUser    = "ROLE_USER"
	RoleService = "ROLE_SERVICE" // carried by service tokens only
)

// HasRole reports whether the given role is present in the slice.
func HasRole(roles []string, target string) bool {
	for _, role := range roles {
		if role == target {
			return true
		}
	}
	return false
}
