package jwt

import (
	"errors"
	"testing"
	"time"

	"ride-coord/internal/domain/user"
)

func TestIssueAndValidateRoundTrip(t *testing.T) {
	mgr := NewManager("test-secret", time.Hour)

	signed, claims, err := mgr.IssueUserToken("driver-1", user.RoleDriver)
	if err != nil {
		t.Fatalf("IssueUserToken: %v", err)
	}
	if claims.Subject != "driver-1" || claims.Role != user.RoleDriver {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	_, parsed, err := mgr.ParseAndValidate(signed)
	if err != nil {
		t.Fatalf("ParseAndValidate: %v", err)
	}
	if parsed.Subject != "driver-1" || parsed.Role != user.RoleDriver {
		t.Fatalf("round trip lost claims: %+v", parsed)
	}
}

func TestIssueRejectsInvalidRole(t *testing.T) {
	mgr := NewManager("test-secret", time.Hour)
	if _, _, err := mgr.IssueUserToken("u1", user.Role("WIZARD")); err == nil {
		t.Fatal("invalid role must be rejected")
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	issuer := NewManager("secret-a", time.Hour)
	verifier := NewManager("secret-b", time.Hour)

	signed, _, err := issuer.IssueUserToken("u1", user.RolePassenger)
	if err != nil {
		t.Fatalf("IssueUserToken: %v", err)
	}
	if _, _, err := verifier.ParseAndValidate(signed); err == nil {
		t.Fatal("token signed with another secret must not validate")
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	mgr := NewManager("test-secret", -time.Minute)
	signed, _, err := mgr.IssueUserToken("u1", user.RolePassenger)
	if err != nil {
		t.Fatalf("IssueUserToken: %v", err)
	}
	if _, _, err := mgr.ParseAndValidate(signed); err == nil {
		t.Fatal("expired token must not validate")
	}
}

func TestRoleAllowed(t *testing.T) {
	cl := NewUserClaims("u1", user.RoleDriver, time.Hour)

	if err := RoleAllowed(cl, user.RoleDriver); err != nil {
		t.Fatalf("driver should be allowed: %v", err)
	}
	if err := RoleAllowed(cl, user.RolePassenger, user.RoleDriver); err != nil {
		t.Fatalf("driver should be allowed among several: %v", err)
	}
	if err := RoleAllowed(cl, user.RolePassenger); !errors.Is(err, ErrRoleForbidden) {
		t.Fatalf("expected ErrRoleForbidden, got %v", err)
	}
}

func TestNewManagerPanicsOnEmptySecret(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on empty secret")
		}
	}()
	NewManager("  ", time.Hour)
}
