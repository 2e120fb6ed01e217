package expiry

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Month is a card expiry expressed as calendar year + month.
type Month struct {
	Year  int
	Month int
}

// Of returns the expiry month that 'at' falls into, evaluated in UTC.
func Of(at time.Time) Month {
	t := at.UTC()
	return Month{Year: t.Year(), Month: int(t.Month())}
}

// ValidMonth reports whether m is a calendar month (1..12).
func ValidMonth(m int) bool {
	return m >= 1 && m <= 12
}

// Before reports whether e is strictly before ref, comparing (year, month) only.
// Out of range months are compared numerically; callers validate the range separately.
func (e Month) Before(ref Month) bool {
	if e.Year != ref.Year {
		return e.Year < ref.Year
	}
	return e.Month < ref.Month
}

// InPast reports whether the card expiry (month, year) lies before the current UTC month.
// A card expiring in the current month is still valid.
func InPast(month, year int, now time.Time) bool {
	return Month{Year: year, Month: month}.Before(Of(now))
}

// BankFormat renders expiry as "M/YYYY" (no zero padding), the format the acquiring bank expects.
func BankFormat(month, year int) string {
	return fmt.Sprintf("%d/%d", month, year)
}

// CardFace renders expiry as MM/YY for display.
func CardFace(month, year int) string {
	return fmt.Sprintf("%02d/%02d", month, year%100)
}

// ParseBankFormat parses "M/YYYY" (also accepts "MM/YYYY") back into month and year.
func ParseBankFormat(in string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(in), "/")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expiry must be M/YYYY")
	}
	month, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("expiry month must be digits")
	}
	if !ValidMonth(month) {
		return 0, 0, fmt.Errorf("expiry month must be 1..12")
	}
	if len(parts[1]) != 4 {
		return 0, 0, fmt.Errorf("expiry year must have 4 digits")
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("expiry year must be digits")
	}
	return month, year, nil
}

// After returns the expiry month 'years' years after 'issue' (used for generated test cards).
func After(issue time.Time, years int) Month {
	m := Of(issue)
	m.Year += years
	return m
}
