package database

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"campushub/pkg/interfaces"
	"campushub/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func courseMsg(id, sender, course, content string, at time.Time) *types.ChatMessage {
	return &types.ChatMessage{
		ID:         id,
		SenderID:   sender,
		SenderName: sender,
		CourseID:   course,
		Content:    content,
		Timestamp:  at,
	}
}

func privateMsg(id, sender, receiver, content string, at time.Time) *types.ChatMessage {
	return &types.ChatMessage{
		ID:         id,
		SenderID:   sender,
		SenderName: sender,
		ReceiverID: receiver,
		Content:    content,
		Timestamp:  at,
	}
}

func TestSaveMessageAndCourseHistory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		msg := courseMsg(fmt.Sprintf("m%d", i), "teacher", "course-1", fmt.Sprintf("msg %d", i), base.Add(time.Duration(i)*time.Minute))
		if err := store.SaveMessage(ctx, msg); err != nil {
			t.Fatalf("SaveMessage %d failed: %v", i, err)
		}
	}
	if err := store.SaveMessage(ctx, courseMsg("other", "x", "course-2", "elsewhere", base)); err != nil {
		t.Fatalf("SaveMessage failed: %v", err)
	}

	history, err := store.CourseHistory(ctx, "course-1", 10)
	if err != nil {
		t.Fatalf("CourseHistory failed: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("got %d messages, want 3", len(history))
	}
	// Chronological order, oldest first.
	for i, msg := range history {
		if msg.ID != fmt.Sprintf("m%d", i) {
			t.Errorf("position %d holds %s", i, msg.ID)
		}
	}
}

func TestCourseHistory_LimitKeepsNewest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		msg := courseMsg(fmt.Sprintf("m%d", i), "s1", "course-1", "x", base.Add(time.Duration(i)*time.Minute))
		if err := store.SaveMessage(ctx, msg); err != nil {
			t.Fatalf("SaveMessage failed: %v", err)
		}
	}

	history, err := store.CourseHistory(ctx, "course-1", 2)
	if err != nil {
		t.Fatalf("CourseHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("got %d messages, want 2", len(history))
	}
	// The cap drops the oldest, not the newest.
	if history[0].ID != "m3" || history[1].ID != "m4" {
		t.Errorf("got %s, %s; want m3, m4", history[0].ID, history[1].ID)
	}
}

func TestPrivateHistory_BothDirections(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	msgs := []*types.ChatMessage{
		privateMsg("p1", "alice", "bob", "hi bob", base),
		privateMsg("p2", "bob", "alice", "hi alice", base.Add(time.Minute)),
		privateMsg("p3", "alice", "cara", "unrelated", base.Add(2*time.Minute)),
	}
	for _, msg := range msgs {
		if err := store.SaveMessage(ctx, msg); err != nil {
			t.Fatalf("SaveMessage failed: %v", err)
		}
	}

	history, err := store.PrivateHistory(ctx, "alice", "bob", 10)
	if err != nil {
		t.Fatalf("PrivateHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("got %d messages, want 2", len(history))
	}
	if history[0].ID != "p1" || history[1].ID != "p2" {
		t.Errorf("conversation order wrong: %s, %s", history[0].ID, history[1].ID)
	}

	// Argument order must not matter.
	flipped, err := store.PrivateHistory(ctx, "bob", "alice", 10)
	if err != nil {
		t.Fatalf("PrivateHistory failed: %v", err)
	}
	if len(flipped) != 2 {
		t.Errorf("flipped arguments got %d messages, want 2", len(flipped))
	}
}

func TestSaveMessage_RejectsBadScope(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	both := &types.ChatMessage{
		ID: "bad1", SenderID: "a", SenderName: "a",
		CourseID: "c1", ReceiverID: "b",
		Content: "x", Timestamp: time.Now(),
	}
	if err := store.SaveMessage(ctx, both); err == nil {
		t.Error("message with both scopes must violate the schema check")
	}

	neither := &types.ChatMessage{
		ID: "bad2", SenderID: "a", SenderName: "a",
		Content: "x", Timestamp: time.Now(),
	}
	if err := store.SaveMessage(ctx, neither); err == nil {
		t.Error("message with neither scope must violate the schema check")
	}
}

func TestUserDirectory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.GetUser(ctx, "ghost"); err != interfaces.ErrUserNotFound {
		t.Errorf("GetUser miss = %v, want ErrUserNotFound", err)
	}

	user := &types.User{ID: "alice", Name: "Alice Liddell", Role: "student"}
	if err := store.UpsertUser(ctx, user); err != nil {
		t.Fatalf("UpsertUser failed: %v", err)
	}

	got, err := store.GetUser(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.Name != "Alice Liddell" || got.Role != "student" {
		t.Errorf("got %+v", got)
	}

	// Upsert refreshes in place.
	user.Name = "A. Liddell"
	if err := store.UpsertUser(ctx, user); err != nil {
		t.Fatalf("UpsertUser update failed: %v", err)
	}
	got, err = store.GetUser(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.Name != "A. Liddell" {
		t.Errorf("name not refreshed: %q", got.Name)
	}
}

func TestHealthCheck(t *testing.T) {
	store := newTestStore(t)
	if err := store.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck failed: %v", err)
	}
}

func TestClose(t *testing.T) {
	store := newTestStore(t)

	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}

	err := store.SaveMessage(context.Background(), courseMsg("late", "a", "c1", "x", time.Now()))
	if err != interfaces.ErrStoreClosed {
		t.Errorf("write after close = %v, want ErrStoreClosed", err)
	}
}

func TestCapLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 50},
		{-1, 50},
		{501, 50},
		{1, 1},
		{500, 500},
	}
	for _, tt := range tests {
		if got := capLimit(tt.in); got != tt.want {
			t.Errorf("capLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
