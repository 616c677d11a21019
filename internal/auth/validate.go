package auth

import "github.com/intelguardhq/controller/pkg/types"

// ValidateBackendRoles checks the caller identity against the backend-role
// filter. A non-empty return value is the rejection message; empty means the
// caller is authorized. With filtering disabled every caller passes, matching
// deployments that run without a security layer.
func ValidateBackendRoles(user *types.User, filterEnabled bool) string {
	if !filterEnabled {
		return ""
	}
	if user == nil {
		return "filtering by backend roles is enabled, but the request carries no authenticated user"
	}
	if len(user.BackendRoles) == 0 {
		return "user " + user.Name + " does not have backend roles configured"
	}
	return ""
}
