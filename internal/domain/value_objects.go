package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"net/mail"
	"strings"
	"unicode"
)

const israelCountryCode = "972"

// NormalizePhone keeps only digits, dropping a leading "00" international prefix.
func NormalizePhone(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))

	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}

	digits := b.String()

	return strings.TrimPrefix(digits, "00")
}

// IsraeliPhoneVariant returns the alternate spelling of an Israeli number: a 0 after
// 972 is removed when present and inserted otherwise.
func IsraeliPhoneVariant(phone string) (string, bool) {
	digits := NormalizePhone(phone)
	if !strings.HasPrefix(digits, israelCountryCode) {
		return "", false
	}

	rest := digits[len(israelCountryCode):]
	if strings.HasPrefix(rest, "0") {
		return israelCountryCode + rest[1:], true
	}

	return israelCountryCode + "0" + rest, true
}

func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func ValidEmail(email string) bool {
	if email == "" {
		return false
	}

	addr, err := mail.ParseAddress(email)

	return err == nil && addr.Address == email
}

// HashSecret returns the hex encoded SHA-256 of the peppered secret.
func HashSecret(secret, pepper string) string {
	sum := sha256.Sum256([]byte(pepper + secret))

	return hex.EncodeToString(sum[:])
}
