package access

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/text/language"

	"toolgate/internal/domain"
)

// Supported locales for user-facing messages. The matcher falls back to
// English for anything it cannot place.
var messageMatcher = language.NewMatcher([]language.Tag{
	language.English,
	language.Indonesian,
})

type messagePair struct {
	en string
	id string
}

var denyMessages = map[error]messagePair{
	domain.ErrTokenNotFound:     {en: "Invalid link", id: "Tautan tidak valid"},
	domain.ErrTokenUsed:         {en: "Already used", id: "Sudah digunakan"},
	domain.ErrTokenUserMismatch: {en: "Invalid user", id: "Pengguna tidak valid"},
	domain.ErrTokenExpired:      {en: "Link expired", id: "Tautan kedaluwarsa"},
	domain.ErrNotFound:          {en: "User not found", id: "Pengguna tidak ditemukan"},
	domain.ErrAccessExpired:     {en: "Access expired", id: "Akses kedaluwarsa"},
}

// DenyMessage maps an expected rejection to its plain-language message in
// the requested locale. Unknown errors get a generic retry message that
// leaks no internal detail.
func DenyMessage(err error, locale string) string {
	pair, ok := lookupMessage(err)
	if !ok {
		if isIndonesian(locale) {
			return "Verifikasi gagal"
		}
		return "Verification failed"
	}
	if isIndonesian(locale) {
		return pair.id
	}
	return pair.en
}

// GrantMessage is the confirmation shown after a successful redemption.
func GrantMessage(window time.Duration, locale string) string {
	hours := int(window.Hours())
	if isIndonesian(locale) {
		return fmt.Sprintf("Akses %d jam ditambahkan!", hours)
	}
	return fmt.Sprintf("%d hours access added!", hours)
}

func lookupMessage(err error) (messagePair, bool) {
	for sentinel, pair := range denyMessages {
		if errors.Is(err, sentinel) {
			return pair, true
		}
	}
	return messagePair{}, false
}

func isIndonesian(locale string) bool {
	tag, err := language.Parse(locale)
	if err != nil {
		return false
	}
	_, idx, _ := messageMatcher.Match(tag)
	return idx == 1
}
