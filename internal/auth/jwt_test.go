package auth

import (
	"testing"
	"time"

	"labadmin/internal/perm"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := NewAccessToken("secret", "labadmin", time.Minute, Claims{
		UserID:     "2300012345",
		Realname:   "Wang Wei",
		Permission: perm.Teacher | perm.LabManager,
	})
	if err != nil {
		t.Fatalf("sign error: %v", err)
	}

	claims, err := ParseToken("secret", "labadmin", token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if claims.UserID != "2300012345" {
		t.Fatalf("expected user id 2300012345, got %s", claims.UserID)
	}
	if claims.Realname != "Wang Wei" {
		t.Fatalf("expected realname Wang Wei, got %s", claims.Realname)
	}
	if claims.Permission != perm.Teacher|perm.LabManager {
		t.Fatalf("expected teacher+labmanager permission, got %d", claims.Permission)
	}
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	token, err := NewAccessToken("secret", "labadmin", time.Minute, Claims{UserID: "u1"})
	if err != nil {
		t.Fatalf("sign error: %v", err)
	}
	if _, err := ParseToken("other-secret", "labadmin", token); err == nil {
		t.Fatalf("expected parse to fail with wrong secret")
	}
}

func TestTokenRejectsWrongIssuer(t *testing.T) {
	token, err := NewAccessToken("secret", "someone-else", time.Minute, Claims{UserID: "u1"})
	if err != nil {
		t.Fatalf("sign error: %v", err)
	}
	if _, err := ParseToken("secret", "labadmin", token); err == nil {
		t.Fatalf("expected parse to fail with wrong issuer")
	}
}

func TestTokenRejectsExpired(t *testing.T) {
	token, err := NewAccessToken("secret", "labadmin", -time.Minute, Claims{UserID: "u1"})
	if err != nil {
		t.Fatalf("sign error: %v", err)
	}
	if _, err := ParseToken("secret", "labadmin", token); err == nil {
		t.Fatalf("expected parse to fail for expired token")
	}
}
