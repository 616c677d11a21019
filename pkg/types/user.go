package types

// User is the resolved caller identity supplied by the upstream auth proxy.
// A nil *User means the request arrived without an authenticated identity,
// which is how deployments without a security layer present themselves.
type User struct {
	Name         string   `json:"name"`
	BackendRoles []string `json:"backend_roles,omitempty"`
	Roles        []string `json:"roles,omitempty"`
}
