package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestTokenRoundTrip(t *testing.T) {
	s := &service{secret: []byte("test-secret")}
	userID := uuid.New()

	token, err := s.issueToken(userID)
	if err != nil {
		t.Fatalf("issueToken: %v", err)
	}
	got, err := s.ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if got != userID {
		t.Errorf("subject: got %v, want %v", got, userID)
	}
}

func TestValidateTokenGarbage(t *testing.T) {
	s := &service{secret: []byte("test-secret")}
	if _, err := s.ValidateToken(context.Background(), "not.a.jwt"); err == nil {
		t.Fatal("garbage token should be rejected")
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	issuer := &service{secret: []byte("secret-a")}
	verifier := &service{secret: []byte("secret-b")}

	token, err := issuer.issueToken(uuid.New())
	if err != nil {
		t.Fatalf("issueToken: %v", err)
	}
	if _, err := verifier.ValidateToken(context.Background(), token); err == nil {
		t.Fatal("token signed with a different secret should be rejected")
	}
}
