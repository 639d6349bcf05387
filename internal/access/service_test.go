package access

import (
	"testing"

	"ctn_registry/internal/authz"
	"ctn_registry/internal/model"
)

func TestCanRevoke_AdminBypass(t *testing.T) {
	// An admin may revoke any grant without touching the database
	svc := &Service{guard: authz.NewGuard(nil)}
	actor := authz.Actor{Email: "admin@example.com", Roles: []string{model.RoleSystemAdmin}}

	ok, appErr := svc.canRevoke(actor, &model.ConsumerGrant{})
	if appErr != nil {
		t.Fatalf("canRevoke() error: %v", appErr)
	}
	if !ok {
		t.Error("Expected system admin to pass the revocation check")
	}
}
