package domain

import "time"

// Producer is a seller profile keyed by the identity id.
type Producer struct {
	ID               string    `json:"id"`
	BusinessName     string    `json:"businessName"`
	ContactEmail     string    `json:"contactEmail,omitempty"`
	Phone            string    `json:"phone,omitempty"`
	Community        string    `json:"community,omitempty"`
	DocumentRef      string    `json:"-"`
	LogoURL          string    `json:"logoUrl,omitempty"`
	EmailConfirmed   bool      `json:"emailConfirmed"`
	DocumentVerified bool      `json:"documentVerified"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Verified requires both the confirmed email and the administrator-approved document.
func (p Producer) Verified() bool {
	return p.EmailConfirmed && p.DocumentVerified
}

// RatingSummary aggregates the ratings left on a producer's products.
type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}
