package auth

import (
	"testing"

	"github.com/intelguardhq/controller/pkg/types"
)

func TestValidateBackendRoles(t *testing.T) {
	cases := []struct {
		name          string
		user          *types.User
		filterEnabled bool
		wantRejected  bool
	}{
		{name: "filtering disabled", user: nil, filterEnabled: false, wantRejected: false},
		{name: "filtering disabled with user", user: &types.User{Name: "alice"}, filterEnabled: false, wantRejected: false},
		{name: "missing user", user: nil, filterEnabled: true, wantRejected: true},
		{name: "no backend roles", user: &types.User{Name: "alice"}, filterEnabled: true, wantRejected: true},
		{name: "with backend roles", user: &types.User{Name: "alice", BackendRoles: []string{"ops"}}, filterEnabled: true, wantRejected: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg := ValidateBackendRoles(tc.user, tc.filterEnabled)
			if tc.wantRejected && msg == "" {
				t.Fatalf("expected rejection message, got none")
			}
			if !tc.wantRejected && msg != "" {
				t.Fatalf("unexpected rejection: %q", msg)
			}
		})
	}
}
