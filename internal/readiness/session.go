// Package readiness holds the predicates that decide whether a session may be
// used for authenticated calls and whether a team still needs its first-time
// configuration. All functions are pure and fail closed on missing input.
package readiness

import "strings"

// Session is the client-held identity forwarded by the console.
type Session struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	AccessToken string `json:"-"`
}

// IsSessionAuthenticated reports whether s carries both an identity and an
// email. Data fetching is skipped until it does.
func IsSessionAuthenticated(s *Session) bool {
	if s == nil {
		return false
	}
	return strings.TrimSpace(s.ID) != "" && strings.TrimSpace(s.Email) != ""
}
