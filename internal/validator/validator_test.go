package validator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chasquid-dev/mailcore/internal/sasl"
)

func TestValidateRoundTrip(t *testing.T) {
	v := New()
	if err := v.AddUser("alice", "hunter2"); err != nil {
		t.Fatalf("AddUser: %v", err)
	}

	id, err := v.Validate(sasl.Credentials{Username: "alice", Password: "hunter2"})
	if err != nil {
		t.Fatalf("Validate(correct password) = %v", err)
	}
	if id.User != "alice" {
		t.Errorf("Identity.User = %q, want alice", id.User)
	}

	if _, err := v.Validate(sasl.Credentials{Username: "alice", Password: "wrong"}); err == nil {
		t.Error("Validate(wrong password) = nil error, want ValidationError")
	}

	if _, err := v.Validate(sasl.Credentials{Username: "bob", Password: "hunter2"}); err == nil {
		t.Error("Validate(unknown user) = nil error, want ValidationError")
	}
}

func TestValidateNormalizesUsername(t *testing.T) {
	v := New()
	if err := v.AddUser("Alice", "hunter2"); err != nil {
		t.Fatalf("AddUser: %v", err)
	}

	// PRECIS case-folds usernames, so a different-case lookup should still
	// resolve to the same stored entry.
	if _, err := v.Validate(sasl.Credentials{Username: "alice", Password: "hunter2"}); err != nil {
		t.Errorf("Validate(case-folded username) = %v", err)
	}
}

func TestExistsAndRemoveUser(t *testing.T) {
	v := New()
	if v.Exists("alice") {
		t.Fatal("Exists(alice) = true before AddUser")
	}
	if err := v.AddUser("alice", "hunter2"); err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	if !v.Exists("alice") {
		t.Error("Exists(alice) = false after AddUser")
	}
	if !v.RemoveUser("alice") {
		t.Error("RemoveUser(alice) = false, want true")
	}
	if v.Exists("alice") {
		t.Error("Exists(alice) = true after RemoveUser")
	}
	if v.RemoveUser("alice") {
		t.Error("RemoveUser(alice) second call = true, want false")
	}
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	v, err := Load(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v.Exists("anyone") {
		t.Error("Exists on empty db = true")
	}
}

func TestWriteThenLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users")

	v := New()
	if err := v.AddUser("alice", "hunter2"); err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	if err := v.Write(path); err != nil {
		t.Fatalf("Write: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := loaded.Validate(sasl.Credentials{Username: "alice", Password: "hunter2"}); err != nil {
		t.Errorf("Validate after reload = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) == 0 {
		t.Error("written file is empty")
	}
}
