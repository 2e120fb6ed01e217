package cardgen

import (
	"crypto/rand"
	"fmt"
	"strconv"
	"strings"
)

// GeneratePAN builds a test card number of totalLen digits starting with bin.
// When lastDigit is in 0..9 the final digit is forced to it (the bank simulator keys its
// decision on the last digit); otherwise the final digit is a Luhn check digit.
func GeneratePAN(bin string, totalLen int, lastDigit int) (string, error) {
	if err := ValidateBIN(bin); err != nil {
		return "", err
	}
	if totalLen < 14 || totalLen > 19 {
		return "", fmt.Errorf("total length must be 14..19")
	}
	fill := totalLen - 1 - len(bin)
	if fill <= 0 {
		return "", fmt.Errorf("bin too long: %s", bin)
	}
	digitsPart, err := randomDigits(fill)
	if err != nil {
		return "", fmt.Errorf("rand: %w", err)
	}
	body := bin + digitsPart
	if lastDigit >= 0 && lastDigit <= 9 {
		return body + strconv.Itoa(lastDigit), nil
	}
	return body + luhnCheckDigit(body), nil
}

// randomDigits returns count uniformly distributed decimal digits.
// Bytes >= 250 are rejected so that b%10 has no modulo bias.
func randomDigits(count int) (string, error) {
	if count <= 0 {
		return "", nil
	}
	const threshold = 250
	var sb strings.Builder
	sb.Grow(count)
	buf := make([]byte, 64)
	for sb.Len() < count {
		n, err := rand.Read(buf)
		if err != nil {
			return "", err
		}
		for i := 0; i < n && sb.Len() < count; i++ {
			b := buf[i]
			if b < threshold {
				sb.WriteByte('0' + (b % 10))
			}
		}
	}
	return sb.String(), nil
}

func luhnCheckDigit(body string) string {
	sum, dbl := 0, true
	for i := len(body) - 1; i >= 0; i-- {
		d := int(body[i] - '0')
		if dbl {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		dbl = !dbl
	}
	cd := (10 - (sum % 10)) % 10
	return string('0' + byte(cd))
}

// LuhnValid reports whether pan carries a correct Luhn check digit.
func LuhnValid(pan string) bool {
	if len(pan) < 2 || !IsDigits(pan) {
		return false
	}
	return luhnCheckDigit(pan[:len(pan)-1])[0] == pan[len(pan)-1]
}

func ValidateBIN(bin string) error {
	if bin == "" {
		return fmt.Errorf("bin is required")
	}
	if !IsDigits(bin) {
		return fmt.Errorf("bin must contain digits only")
	}
	switch len(bin) {
	case 6, 8:
		return nil
	default:
		return fmt.Errorf("bin must be 6 or 8 digits")
	}
}

// IsDigits reports whether s is non-empty and made of ASCII digits only.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func LastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// LastFour returns the numeric value of the final four characters of pan.
// "0042" yields 42; the caller keeps the zero padding concern at presentation time.
func LastFour(pan string) (int, error) {
	tail := LastN(pan, 4)
	if len(tail) != 4 || !IsDigits(tail) {
		return 0, fmt.Errorf("card number must end with 4 digits")
	}
	return strconv.Atoi(tail)
}

// MaskPAN keeps the BIN and the last four digits of long numbers, only the last four otherwise.
func MaskPAN(pan string) string {
	cleaned := strings.TrimSpace(pan)
	n := len(cleaned)
	if n == 0 {
		return ""
	}
	if n <= 4 {
		return strings.Repeat("*", n)
	}
	if n < 10 {
		return strings.Repeat("*", n-4) + cleaned[n-4:]
	}
	return cleaned[:6] + strings.Repeat("*", n-10) + cleaned[n-4:]
}
