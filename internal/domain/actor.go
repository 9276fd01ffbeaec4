package domain

import "time"

type Role string

const (
	RoleAnonymous Role = "anonymous"
	RoleClient    Role = "client"
	RoleProducer  Role = "producer"
	RoleUnknown   Role = "unknown"
)

// Actor is the resolved identity behind a request. ID is set whenever a
// valid session exists, even if no client or producer profile matches.
type Actor struct {
	Role      Role      `json:"role"`
	ID        string    `json:"id,omitempty"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name,omitempty"`
	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"-"`
	Producer  *Producer `json:"producer,omitempty"`
}

// Anonymous is the actor of a request without a session.
func Anonymous() Actor {
	return Actor{Role: RoleAnonymous}
}

// HasSession reports whether the actor carries an authenticated identity.
func (a Actor) HasSession() bool {
	return a.ID != "" && a.Role != RoleUnknown
}
