package job

import (
	"errors"
	"testing"
	"time"
)

func TestStoreLifecycle(t *testing.T) {
	s := NewStore()
	j := s.Create("account-1")
	if j.ID == "" || j.Status != StatusBusy || j.OwnerAccount != "account-1" {
		t.Fatalf("unexpected job: %+v", j)
	}

	got, err := s.Get(j.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != j.ID || got.Status != StatusBusy {
		t.Fatalf("unexpected stored job: %+v", got)
	}

	done, err := s.Complete(j.ID, StatusSuccess, "share://out.xlsx", "")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != StatusSuccess || done.ResultReference != "share://out.xlsx" {
		t.Fatalf("unexpected terminal job: %+v", done)
	}
	if !done.Terminal() {
		t.Fatal("success should be terminal")
	}
	if done.ModifiedAt.Before(done.CreatedAt) {
		t.Fatal("ModifiedAt went backwards")
	}
}

func TestStoreGetUnknown(t *testing.T) {
	s := NewStore()
	if _, err := s.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteOlderThan(t *testing.T) {
	s := NewStore()
	now := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	old := s.Create("account-1")
	if _, err := s.Complete(old.ID, StatusFailed, "", "boom"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	stillBusy := s.Create("account-1")

	now = now.Add(10 * 24 * time.Hour)
	fresh := s.Create("account-1")
	if _, err := s.Complete(fresh.ID, StatusSuccess, "share://f.xlsx", ""); err != nil {
		t.Fatalf("complete: %v", err)
	}

	removed := s.DeleteOlderThan(7 * 24 * time.Hour)
	if len(removed) != 1 || removed[0].ID != old.ID {
		t.Fatalf("unexpected removals: %+v", removed)
	}
	// Busy jobs are never reaped, however old.
	if _, err := s.Get(stillBusy.ID); err != nil {
		t.Fatalf("busy job was removed: %v", err)
	}
	if _, err := s.Get(fresh.ID); err != nil {
		t.Fatalf("fresh job was removed: %v", err)
	}
}
