package auth

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const specialChars = `!@#$%^&*(),.?":{}|<>`

var commonPasswords = map[string]struct{}{
	"password": {}, "password123": {}, "12345678": {}, "qwerty": {}, "abc123": {},
	"monkey": {}, "1234567": {}, "letmein": {}, "trustno1": {}, "dragon": {},
	"baseball": {}, "iloveyou": {}, "master": {}, "sunshine": {}, "ashley": {},
	"bailey": {}, "passw0rd": {}, "shadow": {}, "123123": {}, "654321": {},
}

// HashPassword создает bcrypt хеш пароля
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash проверяет пароль против хеша
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePassword возвращает список нарушенных правил; пустой список - пароль подходит
func ValidatePassword(password string) []string {
	var problems []string

	if len(password) < 8 {
		problems = append(problems, "Password must be at least 8 characters long")
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
		if strings.ContainsRune(specialChars, r) {
			hasSpecial = true
		}
	}
	if !hasUpper {
		problems = append(problems, "Password must contain at least one uppercase letter")
	}
	if !hasLower {
		problems = append(problems, "Password must contain at least one lowercase letter")
	}
	if !hasDigit {
		problems = append(problems, "Password must contain at least one number")
	}
	if !hasSpecial {
		problems = append(problems, "Password must contain at least one special character")
	}

	lower := strings.ToLower(password)
	if _, ok := commonPasswords[lower]; ok {
		problems = append(problems, "Password is too common")
	}
	if hasSequence(lower) {
		problems = append(problems, "Password should not contain sequential characters (e.g., 123, abc)")
	}
	if hasTripleRepeat(password) {
		problems = append(problems, "Password should not contain more than 2 repeated characters")
	}

	return problems
}

// hasSequence ищет три подряд идущих символа: 123, abc
func hasSequence(s string) bool {
	for i := 0; i+2 < len(s); i++ {
		a, b, c := s[i], s[i+1], s[i+2]
		if b != a+1 || c != b+1 {
			continue
		}
		if (a >= '0' && c <= '9') || (a >= 'a' && c <= 'z') {
			return true
		}
	}
	return false
}

func hasTripleRepeat(s string) bool {
	runes := []rune(s)
	for i := 0; i+2 < len(runes); i++ {
		if runes[i] == runes[i+1] && runes[i+1] == runes[i+2] {
			return true
		}
	}
	return false
}

// GenerateSecureToken - url-safe случайная строка из n байт
func GenerateSecureToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
