package expiry

import (
	"testing"
	"time"
)

func TestInPast(t *testing.T) {
	now := time.Date(2026, time.October, 19, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		month, year int
		past        bool
	}{
		{10, 2026, false}, // current month still valid
		{11, 2026, false},
		{1, 2027, false},
		{9, 2026, true},
		{12, 2025, true},
		{13, 2025, true}, // out of range month in a past year
		{0, 2026, true},
		{13, 2026, false},
	}
	for _, c := range cases {
		if got := InPast(c.month, c.year, now); got != c.past {
			t.Fatalf("InPast(%d, %d) = %v want %v", c.month, c.year, got, c.past)
		}
	}
}

func TestInPast_UsesUTC(t *testing.T) {
	// 2026-11-01 01:00 in UTC+3 is still October in UTC.
	loc := time.FixedZone("UTC+3", 3*60*60)
	now := time.Date(2026, time.November, 1, 1, 0, 0, 0, loc)
	if InPast(10, 2026, now) {
		t.Fatalf("expected 10/2026 to be valid while UTC is still October")
	}
}

func TestFormats(t *testing.T) {
	if got := BankFormat(4, 2030); got != "4/2030" {
		t.Fatalf("BankFormat got %s want %s", got, "4/2030")
	}
	if got := BankFormat(12, 2030); got != "12/2030" {
		t.Fatalf("BankFormat got %s want %s", got, "12/2030")
	}
	if got := CardFace(4, 2030); got != "04/30" {
		t.Fatalf("CardFace got %s want %s", got, "04/30")
	}
}

func TestParseBankFormat(t *testing.T) {
	m, y, err := ParseBankFormat("4/2030")
	if err != nil || m != 4 || y != 2030 {
		t.Fatalf("ParseBankFormat 4/2030 got %d/%d err=%v", m, y, err)
	}
	m, y, err = ParseBankFormat("04/2030")
	if err != nil || m != 4 || y != 2030 {
		t.Fatalf("ParseBankFormat 04/2030 got %d/%d err=%v", m, y, err)
	}
	for _, in := range []string{"", "4-2030", "13/2030", "4/30", "a/2030", "4/20x0"} {
		if _, _, err := ParseBankFormat(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestAfter_Rollover(t *testing.T) {
	issue := time.Date(2029, time.December, 31, 23, 0, 0, 0, time.UTC)
	got := After(issue, 3)
	if got.Year != 2032 || got.Month != 12 {
		t.Fatalf("After got %+v want 12/2032", got)
	}
}
