package email

import (
	"strings"
	"unicode"
)

// LocalPart returns the part before the @, or the whole input when there is none.
func LocalPart(email string) string {
	if at := strings.IndexByte(email, '@'); at >= 0 {
		return email[:at]
	}
	return email
}

// Valid reports whether email looks like a deliverable address: exactly one
// @, a non-empty local part and a dotted domain.
func Valid(email string) bool {
	email = strings.TrimSpace(email)
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || strings.Contains(domain, "@") {
		return false
	}
	dot := strings.LastIndexByte(domain, '.')
	return dot > 0 && dot < len(domain)-1 && !strings.ContainsAny(email, " \t")
}

// DeriveName builds a display name from the local part, so
// "ada.lovelace@example.com" becomes "Ada Lovelace".
func DeriveName(email string) string {
	parts := strings.FieldsFunc(LocalPart(email), func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})

	if len(parts) == 0 {
		return "User"
	}
	for i, p := range parts {
		parts[i] = capitalize(p)
	}
	return strings.Join(parts, " ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
