package model

import "time"

// Session binds a token to an account for a sliding time window. An
// account may hold any number of concurrent sessions; the token is the
// sole key, so buyer and seller sessions never collide.
type Session struct {
	ID         string    `json:"session_id"`
	Role       string    `json:"role"`
	UserID     int64     `json:"user_id"`
	LastActive time.Time `json:"last_active"`
}
