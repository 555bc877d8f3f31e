package model

import "time"

// Conductor represents a delivery agent that packages are assigned to.
// Every conductor belongs to exactly one tenant (user account).
type Conductor struct {
	ID        int64      `json:"id"`
	OwnerID   int64      `json:"owner_id"`
	Name      string     `json:"name"`
	Zone      string     `json:"zone,omitempty"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}
