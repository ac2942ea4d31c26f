package service

import "strings"

// NormalizeEmail trims and lowercases an address before storage and lookup.
// Provider-specific folding (gmail dots, +suffix) is not applied: students
// and companies sign in with the exact mailbox they registered.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
