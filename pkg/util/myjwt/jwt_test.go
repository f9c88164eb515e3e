package myjwt

import (
	"testing"
	"time"
)

func TestSignAndParse(t *testing.T) {
	tok, err := Sign("secret", "chatnest", time.Hour, "acc-1", "alice")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := Parse("secret", tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Uuid != "acc-1" || claims.Username != "alice" || claims.Issuer != "chatnest" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseRejectsWrongKey(t *testing.T) {
	tok, err := Sign("secret", "chatnest", time.Hour, "acc-1", "alice")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := Parse("other", tok); err == nil {
		t.Fatalf("expected signature error")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	tok, err := Sign("secret", "chatnest", -time.Minute, "acc-1", "alice")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := Parse("secret", tok); err == nil {
		t.Fatalf("expected expiry error")
	}
}

func TestSignRequiresKey(t *testing.T) {
	if _, err := Sign("", "chatnest", time.Hour, "acc-1", "alice"); err == nil {
		t.Fatalf("expected error for empty key")
	}
}
