package domain

import "time"

// Session carries the caller's credentials explicitly into every outbound
// call. There is no ambient auth state.
type Session struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email,omitempty"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (s Session) HasToken() bool {
	return s.AccessToken != ""
}

// Expired reports whether the token is past its expiry once leeway is
// subtracted. A zero ExpiresAt is treated as non-expiring.
func (s Session) Expired(now time.Time, leeway time.Duration) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(leeway).Before(s.ExpiresAt)
}

func (s Session) ExpiresWithin(now time.Time, window time.Duration) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return s.ExpiresAt.Sub(now) <= window
}

func (s Session) CanRefresh() bool {
	return s.RefreshToken != ""
}
