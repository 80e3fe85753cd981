package membudget

import (
	"strings"
	"testing"
)

func TestBudgetBasic(t *testing.T) {
	b := New(Config{TotalBytes: 1000, Source: BudgetSourceCLI})

	if !b.TryReserve(600) {
		t.Fatal("expected reservation of 600 to succeed")
	}
	if b.TryReserve(500) {
		t.Fatal("expected reservation of 500 to fail")
	}
	if got := b.Available(); got != 400 {
		t.Errorf("Available() = %d, want 400", got)
	}

	b.Release(600)
	if got := b.InUse(); got != 0 {
		t.Errorf("InUse() = %d, want 0", got)
	}

	b.Release(10)
	if got := b.InUse(); got != 0 {
		t.Errorf("InUse() after over-release = %d, want 0", got)
	}
}

func TestReserveError(t *testing.T) {
	b := New(Config{TotalBytes: 1024, Source: BudgetSourceCLI})

	if err := b.Reserve(512, "keys"); err != nil {
		t.Fatalf("Reserve(512) error: %v", err)
	}
	err := b.Reserve(1024, "corpus keys")
	if err == nil {
		t.Fatal("expected Reserve to fail")
	}
	if !strings.Contains(err.Error(), "corpus keys") {
		t.Errorf("expected error to name what was loaded, got: %v", err)
	}
}

func TestNewFromSystemRAM(t *testing.T) {
	b := NewFromSystemRAM()
	if b.Total() == 0 {
		t.Error("expected non-zero budget")
	}
	if b.Source() != BudgetSourceAuto50Pct && b.Source() != BudgetSourceDefault {
		t.Errorf("Source() = %s, want auto-50pct or default", b.Source())
	}
}

func TestParse(t *testing.T) {
	b, err := Parse("4GiB")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if b.Total() != 4*1024*1024*1024 {
		t.Errorf("Total() = %d, want %d", b.Total(), 4*1024*1024*1024)
	}
	if b.Source() != BudgetSourceCLI {
		t.Errorf("Source() = %s, want %s", b.Source(), BudgetSourceCLI)
	}

	b, err = Parse("")
	if err != nil {
		t.Fatalf("Parse(\"\") error: %v", err)
	}
	if b.Source() == BudgetSourceCLI {
		t.Error("empty flag should not produce a CLI budget")
	}

	for _, bad := range []string{"invalid", "0", "12XB"} {
		if _, err := Parse(bad); err == nil {
			t.Errorf("Parse(%q) expected error", bad)
		} else if !strings.Contains(err.Error(), "--mem-budget") {
			t.Errorf("Parse(%q) error should mention --mem-budget, got: %v", bad, err)
		}
	}
}
