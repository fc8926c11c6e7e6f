package export

import (
	"reflect"
	"testing"
)

func TestDeduplicateCollapsesStructuralDuplicates(t *testing.T) {
	rows := []Row{
		{ColVCode: "V1", ColNaam: "A"},
		{ColVCode: "V2", ColNaam: "B"},
		{ColVCode: "V1", ColNaam: "A"},
		{ColVCode: "V1", ColNaam: "A2"},
	}
	got := Deduplicate(rows)
	if len(got) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(got))
	}
	// First-seen order preserved.
	if got[0][ColVCode] != "V1" || got[1][ColVCode] != "V2" || got[2][ColNaam] != "A2" {
		t.Fatalf("order not preserved: %v", got)
	}
}

func TestDeduplicateIdempotent(t *testing.T) {
	rows := []Row{
		{ColVCode: "V1", ColMinimumleeftijd: 18},
		{ColVCode: "V1", ColMinimumleeftijd: 18},
		{ColVCode: "V1", ColMinimumleeftijd: nil},
	}
	once := Deduplicate(rows)
	twice := Deduplicate(once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("dedupe not idempotent: %v vs %v", once, twice)
	}
	if len(once) > len(rows) {
		t.Fatal("dedupe must never grow the list")
	}
}

func TestDeduplicateEmpty(t *testing.T) {
	if got := Deduplicate(nil); len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}

func TestChunks(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}
	chunks := Chunks(ids, 2)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[2]) != 1 || chunks[2][0] != "e" {
		t.Fatalf("unexpected tail chunk: %v", chunks[2])
	}
	if Chunks(nil, 2) != nil {
		t.Fatal("empty input should produce no chunks")
	}
}
