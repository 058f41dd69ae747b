package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueParse(t *testing.T) {
	s := NewSigner("secret")

	token, err := s.Issue("ci", time.Hour)
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}

	claims, err := s.Parse(token)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if claims.Subject != "ci" {
		t.Errorf("Subject mismatch: got %q, want %q", claims.Subject, "ci")
	}
}

func TestParse_WrongSecret(t *testing.T) {
	token, _ := NewSigner("one").Issue("ci", time.Hour)

	if _, err := NewSigner("two").Parse(token); err == nil {
		t.Error("Parse() should reject a token signed with another secret")
	}
}

func TestParse_Expired(t *testing.T) {
	s := NewSigner("secret")
	token, _ := s.Issue("ci", -time.Minute)

	_, err := s.Parse(token)
	if !errors.Is(err, jwt.ErrTokenExpired) {
		t.Errorf("Parse() error mismatch: got %v, want %v", err, jwt.ErrTokenExpired)
	}
}

func TestParse_RejectsOtherAlgorithms(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, AppClaims{})
	signed, err := token.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("SignedString() failed: %v", err)
	}

	if _, err := NewSigner("secret").Parse(signed); err == nil {
		t.Error("Parse() should reject HS512 tokens")
	}
}

func TestDisabledSigner(t *testing.T) {
	s := NewSigner("")
	if s.Enabled() {
		t.Error("Enabled() should be false without a secret")
	}
	if _, err := s.Issue("ci", time.Hour); !errors.Is(err, ErrNoSecret) {
		t.Errorf("Issue() error mismatch: got %v, want %v", err, ErrNoSecret)
	}
}
