package auth

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndCheck(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	hash, err := h.Hash("segredo1")
	if err != nil {
		t.Fatalf("Hash() error: %v", err)
	}
	if !h.Check(hash, "segredo1") {
		t.Error("expected password to match")
	}
	if h.Check(hash, "segredo2") {
		t.Error("expected wrong password to fail")
	}
}

func TestHasher_TooShort(t *testing.T) {
	_, err := NewHasher(bcrypt.MinCost).Hash("12345")
	if !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
}

func TestNewHasher_InvalidCost(t *testing.T) {
	if h := NewHasher(99); h.cost != bcrypt.DefaultCost {
		t.Errorf("expected default cost, got %d", h.cost)
	}
}

func TestReauthStore_GrantConsumedOnce(t *testing.T) {
	s := NewReauthStore(time.Minute)
	if s.Consume(1) {
		t.Fatal("expected no grant before Grant")
	}
	s.Grant(1)
	if !s.Valid(1) || !s.Valid(1) {
		t.Fatal("expected Valid to leave the grant in place")
	}
	if !s.Consume(1) {
		t.Fatal("expected grant to be consumable")
	}
	if s.Consume(1) {
		t.Error("expected grant to be single use")
	}
}

func TestReauthStore_Expiry(t *testing.T) {
	s := NewReauthStore(time.Minute)
	clock := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	s.Grant(5)
	s.Grant(6)
	clock = clock.Add(2 * time.Minute)
	if s.Valid(5) || s.Consume(5) {
		t.Error("expected expired grant to be rejected")
	}
	if n := s.Sweep(); n != 1 {
		t.Errorf("expected 1 expired grant swept, got %d", n)
	}
}

func TestHasher_HashInitialAllowsShortPassword(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	hash, err := h.HashInitial("admin")
	if err != nil {
		t.Fatalf("HashInitial() error: %v", err)
	}
	if !h.Check(hash, "admin") {
		t.Error("expected bootstrap password to match")
	}
}
