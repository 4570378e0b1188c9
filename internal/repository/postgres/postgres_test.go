package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/iamasit07/realtime-chat/internal/domain"
)

func TestOpen_EmptyDSN(t *testing.T) {
	db, err := Open("", 1, 1, time.Minute)
	if err == nil {
		t.Fatal("Open with empty DSN should return error")
	}
	if db != nil {
		t.Error("Open should return nil db when error occurs")
	}
}

func TestRunMigrations_Validation(t *testing.T) {
	if err := RunMigrations("", "up"); err == nil {
		t.Error("empty DSN should return error")
	}
	for _, direction := range []string{"", "UP", "sideways"} {
		if err := RunMigrations("postgres://localhost/test", direction); err == nil {
			t.Errorf("direction %q should return error", direction)
		}
	}
}

// openTestDB connects to TEST_DATABASE_URL with a fresh schema, or skips.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	if err := RunMigrations(dsn, "down"); err != nil {
		t.Fatalf("migrate down: %v", err)
	}
	if err := RunMigrations(dsn, "up"); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	db, err := Open(dsn, 5, 5, time.Minute)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createUser(t *testing.T, repo *UserRepo, username string) *domain.Identity {
	t.Helper()
	u := &domain.Identity{Username: username, PasswordHash: "hash", IsActive: true}
	if err := repo.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser(%s): %v", username, err)
	}
	return u
}

func TestUserRepo(t *testing.T) {
	db := openTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	alice := createUser(t, repo, "alice")
	if alice.ID == 0 || alice.Role != domain.RoleUser {
		t.Fatalf("unexpected created user: %+v", alice)
	}

	dup := &domain.Identity{Username: "alice", PasswordHash: "x", IsActive: true}
	if err := repo.CreateUser(ctx, dup); !errors.Is(err, domain.ErrUsernameTaken) {
		t.Errorf("duplicate username: got %v", err)
	}

	missing, err := repo.GetUserByUsername(ctx, "nobody")
	if err != nil || missing != nil {
		t.Errorf("missing user: got %v, %v", missing, err)
	}

	if err := repo.SetRefreshToken(ctx, alice.ID, "rt-1"); err != nil {
		t.Fatalf("SetRefreshToken: %v", err)
	}
	got, err := repo.GetUserByRefreshToken(ctx, "rt-1")
	if err != nil || got == nil || got.ID != alice.ID {
		t.Fatalf("GetUserByRefreshToken: got %+v, %v", got, err)
	}

	if err := repo.ClearRefreshToken(ctx, alice.ID); err != nil {
		t.Fatalf("ClearRefreshToken: %v", err)
	}
	got, _ = repo.GetUserByUsername(ctx, "alice")
	if got.SignedIn() {
		t.Error("refresh token should be cleared")
	}

	if err := repo.LinkGoogleID(ctx, alice.ID, "g-1"); err != nil {
		t.Fatalf("LinkGoogleID: %v", err)
	}
	got, _ = repo.GetUserByGoogleID(ctx, "g-1")
	if got == nil || got.ID != alice.ID {
		t.Errorf("GetUserByGoogleID: got %+v", got)
	}
}

func TestMessageRepo_RecentMessages(t *testing.T) {
	db := openTestDB(t)
	users := NewUserRepo(db)
	messages := NewMessageRepo(db)
	ctx := context.Background()

	alice := createUser(t, users, "alice")
	bob := createUser(t, users, "bob")
	carol := createUser(t, users, "carol")

	for i := 0; i < 6; i++ {
		m := &domain.Message{SenderID: alice.ID, IsBroadcast: true, Text: fmt.Sprintf("hi %d", i)}
		if err := messages.SaveMessage(ctx, m); err != nil {
			t.Fatalf("SaveMessage: %v", err)
		}
	}
	private := &domain.Message{SenderID: bob.ID, ReceiverID: &carol.ID, Text: "secret"}
	if err := messages.SaveMessage(ctx, private); err != nil {
		t.Fatalf("SaveMessage: %v", err)
	}

	recent, err := messages.RecentMessages(ctx, alice.ID, 5)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(recent) != 5 {
		t.Fatalf("got %d messages, want 5", len(recent))
	}
	if recent[0].Text != "hi 5" {
		t.Errorf("newest first: got %q", recent[0].Text)
	}
	for _, m := range recent {
		if !m.IsBroadcast || m.Sender != "alice" {
			t.Errorf("unexpected message in alice's history: %+v", m)
		}
	}

	carolView, err := messages.RecentMessages(ctx, carol.ID, 1)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(carolView) != 1 || carolView[0].Receiver != "carol" || carolView[0].Sender != "bob" {
		t.Errorf("carol's newest message: got %+v", carolView)
	}
}
