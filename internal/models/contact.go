package models

import "time"

// ContactFields holds the plaintext attributes of a contact. Extra keeps the
// source columns that were not mapped to a canonical field, keyed by header.
type ContactFields struct {
	FirstName   string            `json:"first_name"`
	LastName    string            `json:"last_name"`
	Email       string            `json:"email"`
	Company     string            `json:"company"`
	Title       string            `json:"title"`
	Phone       string            `json:"phone"`
	Location    string            `json:"location"`
	LinkedInURL string            `json:"linkedin_url"`
	Extra       map[string]string `json:"extra,omitempty"`
}

type Contact struct {
	ID         int64 `json:"id"`
	CampaignID int64 `json:"campaign_id"`
	ContactFields
	CreatedAt time.Time `json:"created_at"`
}

// EncryptedContact is the storage shape of a contact. Every attribute column
// holds ciphertext produced by the encryption codec; Extra is the ciphertext
// of the JSON-encoded extra map.
type EncryptedContact struct {
	ID          int64
	CampaignID  int64
	FirstName   string
	LastName    string
	Email       string
	Company     string
	Title       string
	Phone       string
	Location    string
	LinkedInURL string
	Extra       string
	CreatedAt   time.Time
}
