package beta

import (
	"crypto/rand"
	"errors"
	"regexp"
	"strings"
	"time"
)

var (
	ErrInvalidCode   = errors.New("invalid access code")
	ErrCodeNotFound  = errors.New("access code not found")
	ErrCodeInactive  = errors.New("access code is no longer active")
	ErrCodeExpired   = errors.New("access code has expired")
	ErrCodeExhausted = errors.New("access code has reached its usage limit")
)

var codePattern = regexp.MustCompile(`^[A-Z0-9-]{4,32}$`)

// NormalizeCode trims and upper-cases raw user input and checks the format.
func NormalizeCode(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if !codePattern.MatchString(code) {
		return "", ErrInvalidCode
	}
	return code, nil
}

// Redeemable reports why c cannot be redeemed at now, or nil.
func (c Code) Redeemable(now time.Time) error {
	switch {
	case !c.Active:
		return ErrCodeInactive
	case c.ExpiresAt != nil && !now.Before(*c.ExpiresAt):
		return ErrCodeExpired
	case c.MaxUses > 0 && c.Uses >= c.MaxUses:
		return ErrCodeExhausted
	}
	return nil
}

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateCode returns a code like "MF-7KQ2-XW9P". Ambiguous characters are left out.
func GenerateCode() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	out := make([]byte, 0, 12)
	out = append(out, "MF-"...)
	for i, v := range b {
		if i == 4 {
			out = append(out, '-')
		}
		out = append(out, codeAlphabet[int(v)%len(codeAlphabet)])
	}
	return string(out), nil
}
