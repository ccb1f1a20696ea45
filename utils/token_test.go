package utils

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestTokenIssuerRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	token, err := issuer.Generate("u1", "b1", "manager", "Mia")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claim, err := issuer.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claim.UserId != "u1" || claim.BarId != "b1" || claim.Role != "manager" || claim.Name != "Mia" {
		t.Fatalf("claim = %+v", claim)
	}
	if _, err := NewTokenIssuer("other", time.Hour).Validate(token); err == nil {
		t.Fatalf("token signed with another secret must be rejected")
	}
}

func TestTokenIssuerExpired(t *testing.T) {
	issuer := NewTokenIssuer("secret", -time.Minute)
	token, err := issuer.Generate("u1", "b1", "staff", "Sam")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := issuer.Validate(token); err == nil {
		t.Fatalf("expired token must be rejected")
	}
}

func TestPasswordHash(t *testing.T) {
	hashed, err := HashPassword("password123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := ComparePassword(string(hashed), "password123"); err != nil {
		t.Fatalf("compare: %v", err)
	}
	if err := ComparePassword(string(hashed), "wrong"); err == nil {
		t.Fatalf("wrong password must not match")
	}
}

func TestLossSummaryCacheKeys(t *testing.T) {
	from := time.Date(2026, 3, 1, 23, 0, 0, 0, time.FixedZone("x", -2*3600))
	if got := LossSummaryCacheKey("b1", &from, nil); got != "LossSummary:b1:20260302:-" {
		t.Fatalf("key = %q", got)
	}
	if got := LossSummaryCachePattern("b1"); got != "LossSummary:b1:*" {
		t.Fatalf("pattern = %q", got)
	}
}

func TestKindErrors(t *testing.T) {
	notFound := NewNotFoundError("product")
	if notFound.Error() != "product not found" {
		t.Fatalf("message = %q", notFound.Error())
	}
	if !errors.Is(fmt.Errorf("open shift: %w", notFound), ErrorRecordNotFound) {
		t.Fatalf("wrapped not-found error should match ErrorRecordNotFound")
	}
	input := NewInputError("quantity must be positive")
	if !errors.Is(input, ErrorInvalidInput) || errors.Is(input, ErrorRecordNotFound) {
		t.Fatalf("input error matched the wrong sentinel")
	}
	if !errors.Is(NewDuplicateError("duplicate name"), ErrorDuplicate) {
		t.Fatalf("duplicate error should match ErrorDuplicate")
	}
	if !errors.Is(NewForbiddenError("no"), ErrorForbidden) {
		t.Fatalf("forbidden error should match ErrorForbidden")
	}
}
