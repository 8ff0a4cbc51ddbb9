package identity

import (
	"context"
	"testing"
)

func TestMemoryStore_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	u, err := st.CreateUser(ctx, CreateUserInput{Name: "alice", PasswordHash: "$argon2id$fake"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == "" {
		t.Fatalf("expected generated id")
	}

	ua, err := st.GetUserAuthByName(ctx, "Alice ")
	if err != nil {
		t.Fatalf("GetUserAuthByName: %v", err)
	}
	if ua.User.ID != u.ID || ua.PasswordHash != "$argon2id$fake" {
		t.Fatalf("unexpected auth row: %+v", ua)
	}

	got, err := st.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if got.Name != "alice" {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestMemoryStore_DuplicateNameConflicts(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	if _, err := st.CreateUser(ctx, CreateUserInput{Name: "alice", PasswordHash: "h1"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := st.CreateUser(ctx, CreateUserInput{Name: "ALICE", PasswordHash: "h2"}); !IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestMemoryStore_MissingUser(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	if _, err := st.GetUserByID(ctx, "nope"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := st.GetUserAuthByName(ctx, "nope"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
