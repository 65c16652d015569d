package member

import "time"

type TokenStatus string

const (
	TokenPending    TokenStatus = "pending"
	TokenActivated  TokenStatus = "activated"
	TokenExpired    TokenStatus = "expired"
	TokenSuperseded TokenStatus = "superseded"
)

// ActivationToken is stored by the hash of its value; the plain value only
// exists in the issuing call and the outgoing email.
type ActivationToken struct {
	ID           string
	MemberID     string
	TokenHash    string
	Status       TokenStatus
	IssuedAt     time.Time
	ExpiresAt    time.Time
	ActivatedAt  *time.Time
	SupersededAt *time.Time
	SupersededBy string
}

// EffectiveStatus applies the expiry lazily: a pending token past ExpiresAt
// reads as expired without being rewritten.
func (t ActivationToken) EffectiveStatus(now time.Time) TokenStatus {
	if t.Status == TokenPending && !now.Before(t.ExpiresAt) {
		return TokenExpired
	}
	return t.Status
}

type ActivationStats struct {
	Activated int `json:"activated"`
	Pending   int `json:"pending"`
	Expired   int `json:"expired"`
}

func (s *ActivationStats) Add(status TokenStatus) {
	switch status {
	case TokenActivated:
		s.Activated++
	case TokenPending:
		s.Pending++
	case TokenExpired:
		s.Expired++
	}
}

type ActivationEmail struct {
	MemberID  string    `json:"member_id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
