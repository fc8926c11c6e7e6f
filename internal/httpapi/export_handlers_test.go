package httpapi

import (
	"testing"
	"time"
)

func TestExportRefsExpiry(t *testing.T) {
	refs := newExportRefs()
	clock := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	refs.now = func() time.Time { return clock }

	ref := refs.put([]string{"id-1"})

	clock = clock.Add(exportRefTTL + time.Second)
	if _, ok := refs.take(ref); ok {
		t.Fatal("expired reference should not resolve")
	}
}

func TestExportRefsSingleUse(t *testing.T) {
	refs := newExportRefs()
	ref := refs.put([]string{"id-1", "id-2"})

	list, ok := refs.take(ref)
	if !ok || len(list) != 2 {
		t.Fatalf("take failed: %v %v", list, ok)
	}
	if _, ok := refs.take(ref); ok {
		t.Fatal("reference resolved twice")
	}
}

func TestExportRefsPurgeOnPut(t *testing.T) {
	refs := newExportRefs()
	clock := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	refs.now = func() time.Time { return clock }

	refs.put([]string{"id-1"})
	clock = clock.Add(exportRefTTL + time.Minute)
	refs.put([]string{"id-2"})

	if len(refs.refs) != 1 {
		t.Fatalf("expected expired references to be purged, have %d", len(refs.refs))
	}
}
