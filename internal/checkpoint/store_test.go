package checkpoint

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/memohai/supportdesk/internal/config"
	"github.com/memohai/supportdesk/internal/conversation"
)

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	got, err := store.Load(ctx, "unknown")
	if err != nil {
		t.Fatalf("load unknown session: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("unknown session must be empty, got %d", len(got))
	}

	call := conversation.ToolCall{ID: "c1", Type: "function", Function: conversation.ToolCallFunction{Name: "save_chat_record", Arguments: `{"notes":"x"}`}}
	window := []conversation.Message{
		conversation.UserMessage("hello"),
		conversation.AssistantMessage("", call),
		conversation.ToolMessage("c1", "save_chat_record", ""),
		conversation.AssistantMessage("hi"),
	}
	if err := store.Save(ctx, "s1", window); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err = store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != len(window) {
		t.Fatalf("expected %d messages, got %d", len(window), len(got))
	}
	for i := range window {
		if got[i].ID != window[i].ID || got[i].Role != window[i].Role || got[i].Content != window[i].Content {
			t.Fatalf("message %d mismatch: %#v vs %#v", i, got[i], window[i])
		}
	}
	if len(got[1].ToolCalls) != 1 || got[1].ToolCalls[0].Function.Name != "save_chat_record" {
		t.Fatalf("tool calls not persisted: %#v", got[1])
	}
	if got[2].ToolCallID != "c1" {
		t.Fatalf("tool call id not persisted: %#v", got[2])
	}

	if err := store.Save(ctx, "s1", window[:1]); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, _ = store.Load(ctx, "s1")
	if len(got) != 1 {
		t.Fatalf("overwrite should replace window, got %d", len(got))
	}

	if err := store.Save(ctx, " ", window); !errors.Is(err, ErrEmptySession) {
		t.Fatalf("expected ErrEmptySession, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	exerciseStore(t, store)
	if store.Sessions() != 1 {
		t.Fatalf("expected 1 session, got %d", store.Sessions())
	}
}

func TestMemoryStoreIsolatesCallerSlices(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	window := []conversation.Message{{ID: "a", Role: conversation.RoleUser, Content: "one"}}
	_ = store.Save(context.Background(), "s", window)
	window[0].Content = "mutated"
	got, _ := store.Load(context.Background(), "s")
	if got[0].Content != "one" {
		t.Fatalf("store must copy on save, got %q", got[0].Content)
	}
	got[0].Content = "mutated again"
	again, _ := store.Load(context.Background(), "s")
	if again[0].Content != "one" {
		t.Fatalf("store must copy on load, got %q", again[0].Content)
	}
}

func TestSQLiteStore(t *testing.T) {
	t.Parallel()

	store, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "nested", "cp.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer store.Close()
	exerciseStore(t, store)
}

func TestOpenSelectsDriver(t *testing.T) {
	t.Parallel()

	store, err := Open(context.Background(), config.CheckpointConfig{Driver: ""}, nil)
	if err != nil {
		t.Fatalf("open default: %v", err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}

	store, err = Open(context.Background(), config.CheckpointConfig{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "cp.db")}, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer store.Close()
	if _, ok := store.(*SQLiteStore); !ok {
		t.Fatalf("expected sqlite store, got %T", store)
	}

	if _, err := Open(context.Background(), config.CheckpointConfig{Driver: "redis"}, nil); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestMigrateURL(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"postgres://u:p@h:5432/db": "pgx5://u:p@h:5432/db",
		"postgresql://u@h/db":      "pgx5://u@h/db",
		"pgx5://already@h/db":      "pgx5://already@h/db",
	}
	for in, want := range cases {
		if got := migrateURL(in); got != want {
			t.Fatalf("migrateURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("skip integration test: TEST_POSTGRES_DSN is not set")
	}
	store, err := NewPostgresStore(context.Background(), dsn)
	if err != nil {
		t.Skipf("skip integration test: cannot open database: %v", err)
	}
	defer store.Close()
	exerciseStore(t, store)
}
