package model

import "time"

// Package represents a tracked parcel assigned to a conductor.
type Package struct {
	ID          int64  `json:"id"`
	ConductorID int64  `json:"conductor_id"`
	Tracking    string `json:"tracking"`
	Category    string `json:"category"`
	State       int    `json:"state"`
	// DeliveryDate is a plain ISO date (YYYY-MM-DD), not a timestamp.
	DeliveryDate string    `json:"delivery_date"`
	Value        *float64  `json:"value,omitempty"`
	ProofMime    string    `json:"proof_mime,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Joined fields (not always populated).
	ConductorName string `json:"conductor_name,omitempty"`
}

// Package categories.
const (
	CategoryPrepaid = "prepago"
	CategoryCOD     = "contraentrega"
)

// Package states.
const (
	StateNotDelivered = 0
	StateDelivered    = 1
	StateReturned     = 2
)

// ValidCategory reports whether c is one of the known package categories.
func ValidCategory(c string) bool {
	return c == CategoryPrepaid || c == CategoryCOD
}

// ValidState reports whether s is one of the known package states.
func ValidState(s int) bool {
	return s == StateNotDelivered || s == StateDelivered || s == StateReturned
}

// StateName returns the human-readable (Spanish) name of a package state.
func StateName(s int) string {
	switch s {
	case StateNotDelivered:
		return "no entregado"
	case StateDelivered:
		return "entregado"
	case StateReturned:
		return "devuelto"
	default:
		return "desconocido"
	}
}
