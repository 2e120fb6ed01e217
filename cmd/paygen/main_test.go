package main

import (
	"testing"

	"github.com/alovak/cardflow-gateway/internal/cardgen"
	"github.com/alovak/cardflow-gateway/internal/simulator"
)

func TestLastDigitFor(t *testing.T) {
	cases := []struct {
		outcome string
		want    simulator.Decision
	}{
		{"authorize", simulator.DecisionAuthorize},
		{" Declined ", simulator.DecisionDecline},
		{"unavailable", simulator.DecisionUnavailable},
	}
	for _, c := range cases {
		digit, err := lastDigitFor(c.outcome)
		if err != nil {
			t.Fatalf("lastDigitFor(%q) error: %v", c.outcome, err)
		}
		pan, err := cardgen.GeneratePAN("222240", 16, digit)
		if err != nil {
			t.Fatalf("GeneratePAN: %v", err)
		}
		if got := simulator.Decide(pan); got != c.want {
			t.Fatalf("outcome %q produced %s deciding %v want %v", c.outcome, pan, got, c.want)
		}
	}

	if d, err := lastDigitFor("luhn"); err != nil || d != -1 {
		t.Fatalf("lastDigitFor(luhn) = %d, %v", d, err)
	}
	if _, err := lastDigitFor("maybe"); err == nil {
		t.Fatalf("expected error for unknown outcome")
	}
}

func TestCheckPAN(t *testing.T) {
	pan, err := cardgen.GeneratePAN("222240", 16, -1)
	if err != nil {
		t.Fatalf("GeneratePAN: %v", err)
	}
	if err := checkPAN(pan, -1); err != nil {
		t.Fatalf("checkPAN(%s) = %v", pan, err)
	}

	// flip the check digit
	last := (pan[len(pan)-1]-'0'+1)%10 + '0'
	broken := pan[:len(pan)-1] + string(rune(last))
	if err := checkPAN(broken, -1); err == nil {
		t.Fatalf("expected Luhn failure for %s", broken)
	}

	// forced last digits are not Luhn numbers and are not checked
	if err := checkPAN(broken, 7); err != nil {
		t.Fatalf("checkPAN with forced digit = %v", err)
	}
}
